package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"

	"inclusao/internal/backend"
	"inclusao/internal/registration/models"
	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"
)

const (
	tableRegistrations = "inscricoes"
	tableAdmins        = "admins"
	returnRows         = "representation"
)

type registrationRow struct {
	ID        uuid.UUID `json:"id"`
	Nome      string    `json:"nome"`
	Telefone  string    `json:"telefone"`
	CreatedAt time.Time `json:"created_at"`
}

func (r registrationRow) model() models.Registration {
	return models.Registration{
		ID:        id.RegistrationID(r.ID),
		Name:      r.Nome,
		Phone:     r.Telefone,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type registrationWrite struct {
	Nome     string `json:"nome"`
	Telefone string `json:"telefone"`
}

// execute runs a built query and returns the raw representation.
func (c *Client) execute(ctx context.Context, op string, q *postgrest.FilterBuilder) ([]byte, error) {
	body, err := await(ctx, c.timeout, func() ([]byte, error) {
		body, _, err := q.Execute()
		return body, err
	})
	if err != nil {
		return nil, restError(op, err)
	}
	return body, nil
}

// Insert sends exactly nome and telefone; the table fills id and created_at.
func (c *Client) Insert(ctx context.Context, reg models.NewRegistration) (*models.Registration, error) {
	q := c.rest(ctx).From(tableRegistrations).
		Insert([]registrationWrite{{Nome: reg.Name, Telefone: reg.Phone}}, false, "", returnRows, "")
	body, err := c.execute(ctx, "insert", q)
	if err != nil {
		return nil, err
	}
	var rows []registrationRow
	if err := decode("insert", body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		// anon inserts without select permission return no body
		return &models.Registration{Name: reg.Name, Phone: reg.Phone, CreatedAt: c.now().UTC()}, nil
	}
	rec := rows[0].model()
	return &rec, nil
}

func (c *Client) ListByName(ctx context.Context) ([]models.Registration, error) {
	q := c.rest(ctx).From(tableRegistrations).
		Select("*", "", false).
		Order("nome", &postgrest.OrderOpts{Ascending: true})
	body, err := c.execute(ctx, "select", q)
	if err != nil {
		return nil, err
	}
	var rows []registrationRow
	if err := decode("select", body, &rows); err != nil {
		return nil, err
	}
	out := make([]models.Registration, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, regID id.RegistrationID, patch models.RegistrationPatch) error {
	q := c.rest(ctx).From(tableRegistrations).
		Update(registrationWrite{Nome: patch.Name, Telefone: patch.Phone}, returnRows, "").
		Eq("id", regID.String())
	body, err := c.execute(ctx, "update", q)
	if err != nil {
		return err
	}
	return expectRow("update", body, regID)
}

func (c *Client) Delete(ctx context.Context, regID id.RegistrationID) error {
	q := c.rest(ctx).From(tableRegistrations).
		Delete(returnRows, "").
		Eq("id", regID.String())
	body, err := c.execute(ctx, "delete", q)
	if err != nil {
		return err
	}
	return expectRow("delete", body, regID)
}

// expectRow treats an empty representation as a missing record. Row-level
// security hides rows the same way, so both read as not found.
func expectRow(op string, body []byte, regID id.RegistrationID) error {
	var rows []registrationRow
	if err := decode(op, body, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return backend.NewError(op, "registro não encontrado", fmt.Errorf("registration %s: %w", regID, sentinel.ErrNotFound))
	}
	return nil
}

func (c *Client) IsAdmin(ctx context.Context, userID id.UserID) (bool, error) {
	q := c.rest(ctx).From(tableAdmins).
		Select("id", "", false).
		Eq("id", userID.String())
	body, err := c.execute(ctx, "admins", q)
	if err != nil {
		return false, err
	}
	var rows []struct {
		ID uuid.UUID `json:"id"`
	}
	if err := decode("admins", body, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

var (
	_ backend.Registrations = (*Client)(nil)
	_ backend.Admins        = (*Client)(nil)
)
