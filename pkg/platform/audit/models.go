package audit

import (
	"time"

	id "inclusao/pkg/domain"
)

// Event is an admin action worth keeping a trail of.
type Event struct {
	Timestamp time.Time
	Action    Action
	UserID    id.UserID
	Subject   string
	RequestID string
	ClientIP  string
}

type Action string

const (
	ActionAdminLogin          Action = "admin_login"
	ActionAdminLoginDenied    Action = "admin_login_denied"
	ActionAdminLogout         Action = "admin_logout"
	ActionSessionExpired      Action = "admin_session_expired"
	ActionRegistrationCreated Action = "registration_created"
	ActionRegistrationUpdated Action = "registration_updated"
	ActionRegistrationDeleted Action = "registration_deleted"
)
