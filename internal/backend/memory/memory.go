// Package memory is an in-process backend for tests and local demos.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"inclusao/internal/backend"
	"inclusao/internal/registration/models"
	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"
)

const msgDuplicatePhone = `duplicate key value violates unique constraint "inscricoes_telefone_key"`

// Registrations keeps records in a map and sorts with a pt-BR collator,
// which is what a hosted Postgres with a pt_BR locale would return.
type Registrations struct {
	mu      sync.RWMutex
	records map[id.RegistrationID]models.Registration
	now     func() time.Time
}

func NewRegistrations() *Registrations {
	return &Registrations{
		records: make(map[id.RegistrationID]models.Registration),
		now:     time.Now,
	}
}

func (s *Registrations) Insert(_ context.Context, reg models.NewRegistration) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phoneTakenLocked(reg.Phone, id.RegistrationID{}) {
		return nil, backend.NewError("insert", msgDuplicatePhone, sentinel.ErrAlreadyUsed)
	}
	rec := models.Registration{
		ID:        id.RegistrationID(uuid.New()),
		Name:      reg.Name,
		Phone:     reg.Phone,
		CreatedAt: s.now().UTC(),
	}
	s.records[rec.ID] = rec
	return &rec, nil
}

func (s *Registrations) ListByName(_ context.Context) ([]models.Registration, error) {
	s.mu.RLock()
	out := make([]models.Registration, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.RUnlock()

	col := collate.New(language.BrazilianPortuguese)
	slices.SortStableFunc(out, func(a, b models.Registration) int {
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (s *Registrations) Update(_ context.Context, regID id.RegistrationID, patch models.RegistrationPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[regID]
	if !ok {
		return backend.NewError("update", "registro não encontrado", fmt.Errorf("registration %s: %w", regID, sentinel.ErrNotFound))
	}
	if s.phoneTakenLocked(patch.Phone, regID) {
		return backend.NewError("update", msgDuplicatePhone, sentinel.ErrAlreadyUsed)
	}
	rec.Name = patch.Name
	rec.Phone = patch.Phone
	s.records[regID] = rec
	return nil
}

func (s *Registrations) Delete(_ context.Context, regID id.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[regID]; !ok {
		return backend.NewError("delete", "registro não encontrado", fmt.Errorf("registration %s: %w", regID, sentinel.ErrNotFound))
	}
	delete(s.records, regID)
	return nil
}

func (s *Registrations) phoneTakenLocked(phone string, except id.RegistrationID) bool {
	for rid, r := range s.records {
		if r.Phone == phone && rid != except {
			return true
		}
	}
	return false
}

// Admins is an in-memory allow-list.
type Admins struct {
	mu  sync.RWMutex
	ids map[id.UserID]struct{}
}

func NewAdmins(ids ...id.UserID) *Admins {
	a := &Admins{ids: make(map[id.UserID]struct{}, len(ids))}
	for _, u := range ids {
		a.ids[u] = struct{}{}
	}
	return a
}

func (a *Admins) Add(userID id.UserID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ids[userID] = struct{}{}
}

func (a *Admins) IsAdmin(_ context.Context, userID id.UserID) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.ids[userID]
	return ok, nil
}

var (
	_ backend.Registrations = (*Registrations)(nil)
	_ backend.Admins        = (*Admins)(nil)
)
