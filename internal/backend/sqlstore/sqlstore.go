// Package sqlstore keeps registrations, admin membership and admin
// credentials in a SQL database. The same queries serve Postgres and SQLite;
// only placeholders, timestamps and constraint errors differ.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"inclusao/internal/backend"
	"inclusao/internal/backend/local"
	"inclusao/internal/platform/database"
	"inclusao/internal/registration/models"
	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"
)

// Store implements backend.Registrations, backend.Admins and
// local.CredentialStore.
type Store struct {
	pool *database.Pool
	db   *sql.DB
	now  func() time.Time
}

func New(pool *database.Pool) *Store {
	return &Store{pool: pool, db: pool.DB(), now: time.Now}
}

func (s *Store) sqlite() bool {
	return s.pool.Driver() == database.DriverSQLite
}

// timeArg encodes t for the created_at column.
func (s *Store) timeArg(t time.Time) any {
	if s.sqlite() {
		return t.UnixMilli()
	}
	return t
}

// timeDest returns a scan destination for created_at and a decoder for it.
func (s *Store) timeDest() (any, func() time.Time) {
	if s.sqlite() {
		var ms int64
		return &ms, func() time.Time { return time.UnixMilli(ms).UTC() }
	}
	var t time.Time
	return &t, func() time.Time { return t.UTC() }
}

// idArg encodes a uuid for the id column; SQLite keeps them as text.
func (s *Store) idArg(u uuid.UUID) any {
	if s.sqlite() {
		return u.String()
	}
	return u
}

func (s *Store) Insert(ctx context.Context, reg models.NewRegistration) (*models.Registration, error) {
	rec := models.Registration{
		ID:        id.RegistrationID(uuid.New()),
		Name:      reg.Name,
		Phone:     reg.Phone,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	_, err := s.db.ExecContext(ctx, s.pool.Rebind(
		`INSERT INTO inscricoes (id, nome, telefone, created_at) VALUES (?, ?, ?, ?)`),
		s.idArg(uuid.UUID(rec.ID)), rec.Name, rec.Phone, s.timeArg(rec.CreatedAt),
	)
	if err != nil {
		return nil, s.writeError("insert", err)
	}
	return &rec, nil
}

func (s *Store) ListByName(ctx context.Context) ([]models.Registration, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, nome, telefone, created_at FROM inscricoes ORDER BY nome ASC`)
	if err != nil {
		return nil, backend.NewError("select", "falha ao consultar inscrições", fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err))
	}
	defer rows.Close()

	var out []models.Registration
	for rows.Next() {
		var (
			rawID string
			rec   models.Registration
		)
		dest, decode := s.timeDest()
		if err := rows.Scan(&rawID, &rec.Name, &rec.Phone, dest); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		parsed, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("registration id %q: %w", rawID, err)
		}
		rec.ID = id.RegistrationID(parsed)
		rec.CreatedAt = decode()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, regID id.RegistrationID, patch models.RegistrationPatch) error {
	res, err := s.db.ExecContext(ctx, s.pool.Rebind(
		`UPDATE inscricoes SET nome = ?, telefone = ? WHERE id = ?`),
		patch.Name, patch.Phone, s.idArg(uuid.UUID(regID)),
	)
	if err != nil {
		return s.writeError("update", err)
	}
	return affected("update", res, regID)
}

func (s *Store) Delete(ctx context.Context, regID id.RegistrationID) error {
	res, err := s.db.ExecContext(ctx, s.pool.Rebind(`DELETE FROM inscricoes WHERE id = ?`), s.idArg(uuid.UUID(regID)))
	if err != nil {
		return s.writeError("delete", err)
	}
	return affected("delete", res, regID)
}

func (s *Store) IsAdmin(ctx context.Context, userID id.UserID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.pool.Rebind(`SELECT 1 FROM admins WHERE id = ?`), s.idArg(uuid.UUID(userID))).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, backend.NewError("admins", "falha ao consultar administradores", fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err))
	}
	return true, nil
}

// AddAdmin grants membership; granting twice is a no-op.
func (s *Store) AddAdmin(ctx context.Context, userID id.UserID) error {
	_, err := s.db.ExecContext(ctx, s.pool.Rebind(
		`INSERT INTO admins (id, created_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`),
		s.idArg(uuid.UUID(userID)), s.timeArg(s.now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("add admin: %w", err)
	}
	return nil
}

// SaveCredential upserts by email.
func (s *Store) SaveCredential(ctx context.Context, c *local.Credential) error {
	_, err := s.db.ExecContext(ctx, s.pool.Rebind(
		`INSERT INTO admin_credentials (user_id, email, password_hash, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT (email) DO UPDATE SET password_hash = excluded.password_hash`),
		s.idArg(uuid.UUID(c.UserID)), local.NormalizeEmail(c.Email), c.PasswordHash, s.timeArg(s.now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*local.Credential, error) {
	return s.findCredential(ctx, `SELECT user_id, email, password_hash FROM admin_credentials WHERE email = ?`, local.NormalizeEmail(email))
}

func (s *Store) FindByID(ctx context.Context, userID id.UserID) (*local.Credential, error) {
	return s.findCredential(ctx, `SELECT user_id, email, password_hash FROM admin_credentials WHERE user_id = ?`, s.idArg(uuid.UUID(userID)))
}

func (s *Store) findCredential(ctx context.Context, query string, arg any) (*local.Credential, error) {
	var (
		rawID string
		c     local.Credential
	)
	err := s.db.QueryRowContext(ctx, s.pool.Rebind(query), arg).Scan(&rawID, &c.Email, &c.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}
	parsed, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("credential id %q: %w", rawID, err)
	}
	c.UserID = id.UserID(parsed)
	return &c, nil
}

func (s *Store) writeError(op string, err error) error {
	if s.isUniqueViolation(err) {
		return backend.NewError(op, err.Error(), sentinel.ErrAlreadyUsed)
	}
	if s.isCheckViolation(err) {
		return backend.NewError(op, err.Error(), sentinel.ErrInvalidInput)
	}
	return backend.NewError(op, "falha ao gravar inscrição", fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err))
}

func affected(op string, res sql.Result, regID id.RegistrationID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return backend.NewError(op, "registro não encontrado", fmt.Errorf("registration %s: %w", regID, sentinel.ErrNotFound))
	}
	return nil
}

func (s *Store) isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func (s *Store) isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_CHECK
	}
	return false
}

var (
	_ backend.Registrations = (*Store)(nil)
	_ backend.Admins        = (*Store)(nil)
	_ local.CredentialStore = (*Store)(nil)
)
