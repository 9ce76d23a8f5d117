package local

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"

	"github.com/google/uuid"
)

// Credential is an email/password identity.
type Credential struct {
	UserID       id.UserID
	Email        string
	PasswordHash []byte
}

// CredentialStore looks identities up by email. Implementations return
// sentinel.ErrNotFound for unknown emails.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	FindByID(ctx context.Context, userID id.UserID) (*Credential, error)
}

// NewCredential hashes password with bcrypt and assigns a fresh user id.
func NewCredential(email, password string) (*Credential, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &Credential{
		UserID:       id.UserID(uuid.New()),
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
	}, nil
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryCredentials keeps credentials in process.
type MemoryCredentials struct {
	mu      sync.RWMutex
	byEmail map[string]*Credential
}

func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{byEmail: make(map[string]*Credential)}
}

// Save inserts or replaces the credential for its email.
func (m *MemoryCredentials) Save(_ context.Context, c *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.byEmail[NormalizeEmail(c.Email)] = &cp
	return nil
}

func (m *MemoryCredentials) FindByEmail(_ context.Context, email string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("credential: %w", sentinel.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryCredentials) FindByID(_ context.Context, userID id.UserID) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.byEmail {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("credential: %w", sentinel.ErrNotFound)
}
