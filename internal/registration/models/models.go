package models

import (
	"time"

	id "inclusao/pkg/domain"
)

// Registration is one program sign-up. The backend generates ID and CreatedAt.
type Registration struct {
	ID        id.RegistrationID
	Name      string
	Phone     string
	CreatedAt time.Time
}

// CopyText is the clipboard text for a row: "<nome> - <telefone>".
func (r Registration) CopyText() string {
	return r.Name + " - " + r.Phone
}

// NewRegistration carries exactly the two fields sent on insert.
type NewRegistration struct {
	Name  string
	Phone string
}

// RegistrationPatch replaces name and phone of an existing record.
type RegistrationPatch struct {
	Name  string
	Phone string
}
