// Package domain provides typed identifiers so registration, user and
// session ids cannot be mixed up at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "inclusao/pkg/domain-errors"
)

type (
	// RegistrationID is generated by the backend on insert.
	RegistrationID uuid.UUID
	// UserID matches the backend's authentication identity.
	UserID uuid.UUID
	// SessionID names an admin session on this server.
	SessionID uuid.UUID
)

func NewSessionID() SessionID { return SessionID(uuid.New()) }

// Parse functions are used at trust boundaries (URL params, cookies, remote payloads).

func ParseRegistrationID(s string) (RegistrationID, error) {
	id, err := parseUUID(s, "id da inscrição")
	return RegistrationID(id), err
}

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "id do usuário")
	return UserID(id), err
}

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "id da sessão")
	return SessionID(id), err
}

func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id SessionID) String() string      { return uuid.UUID(id).String() }

func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, label+" não pode ser vazio")
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, label+" inválido")
	}
	return id, nil
}
