package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"inclusao/internal/backend/local"
	"inclusao/internal/platform/database"
	"inclusao/internal/registration/models"
	"inclusao/internal/sentinel"
	"inclusao/migrations"
	id "inclusao/pkg/domain"
)

// SQLiteSuite runs the store against an in-memory SQLite database.
type SQLiteSuite struct {
	suite.Suite
	ctx   context.Context
	pool  *database.Pool
	store *Store
}

func TestSQLiteSuite(t *testing.T) {
	suite.Run(t, new(SQLiteSuite))
}

func (s *SQLiteSuite) SetupTest() {
	s.ctx = context.Background()
	pool, err := database.New(database.Config{Driver: database.DriverSQLite, URL: ":memory:", MaxOpenConns: 1})
	s.Require().NoError(err)
	s.Require().NoError(pool.Migrate(s.ctx, migrations.FS, migrations.DirSQLite))
	s.pool = pool
	s.store = New(pool)
	s.store.now = func() time.Time { return time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC) }
}

func (s *SQLiteSuite) TearDownTest() {
	s.NoError(s.pool.Close())
}

func (s *SQLiteSuite) TestMigrateIsRepeatable() {
	s.NoError(s.pool.Migrate(s.ctx, migrations.FS, migrations.DirSQLite))
}

func (s *SQLiteSuite) TestInsertAndListOrderedByName() {
	for i, name := range []string{"Carla", "Ana", "Bruno"} {
		phone := "(11) 90000-000" + string(rune('1'+i))
		rec, err := s.store.Insert(s.ctx, models.NewRegistration{Name: name, Phone: phone})
		s.Require().NoError(err)
		s.False(rec.ID.IsNil())
	}

	list, err := s.store.ListByName(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("Ana", list[0].Name)
	s.Equal("Bruno", list[1].Name)
	s.Equal("Carla", list[2].Name)
	s.Equal(time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC), list[0].CreatedAt)
}

func (s *SQLiteSuite) TestDuplicatePhone() {
	_, err := s.store.Insert(s.ctx, models.NewRegistration{Name: "Ana", Phone: "(11) 91234-5678"})
	s.Require().NoError(err)

	_, err = s.store.Insert(s.ctx, models.NewRegistration{Name: "Bia", Phone: "(11) 91234-5678"})
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *SQLiteSuite) TestUpdateAndDelete() {
	rec, err := s.store.Insert(s.ctx, models.NewRegistration{Name: "Ana", Phone: "(11) 91234-5678"})
	s.Require().NoError(err)

	s.Require().NoError(s.store.Update(s.ctx, rec.ID, models.RegistrationPatch{Name: "Ana Paula", Phone: "(11) 98888-7777"}))
	list, err := s.store.ListByName(s.ctx)
	s.Require().NoError(err)
	s.Equal("Ana Paula", list[0].Name)
	s.Equal("(11) 98888-7777", list[0].Phone)

	s.Require().NoError(s.store.Delete(s.ctx, rec.ID))
	s.ErrorIs(s.store.Delete(s.ctx, rec.ID), sentinel.ErrNotFound)

	missing := id.RegistrationID(uuid.New())
	s.ErrorIs(s.store.Update(s.ctx, missing, models.RegistrationPatch{Name: "X", Phone: "Y"}), sentinel.ErrNotFound)
}

func (s *SQLiteSuite) TestCredentialsAndMembershipAreSeparate() {
	cred, err := local.NewCredential("Admin@Exemplo.org", "segredo")
	s.Require().NoError(err)
	s.Require().NoError(s.store.SaveCredential(s.ctx, cred))

	found, err := s.store.FindByEmail(s.ctx, "admin@exemplo.org")
	s.Require().NoError(err)
	s.Equal(cred.UserID, found.UserID)
	s.Equal(cred.PasswordHash, found.PasswordHash)

	byID, err := s.store.FindByID(s.ctx, cred.UserID)
	s.Require().NoError(err)
	s.Equal("admin@exemplo.org", byID.Email)

	isAdmin, err := s.store.IsAdmin(s.ctx, cred.UserID)
	s.Require().NoError(err)
	s.False(isAdmin, "credentials alone do not grant membership")

	s.Require().NoError(s.store.AddAdmin(s.ctx, cred.UserID))
	s.Require().NoError(s.store.AddAdmin(s.ctx, cred.UserID))
	isAdmin, err = s.store.IsAdmin(s.ctx, cred.UserID)
	s.Require().NoError(err)
	s.True(isAdmin)

	_, err = s.store.FindByEmail(s.ctx, "ninguem@exemplo.org")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
