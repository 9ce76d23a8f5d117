package web

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inclusao/internal/platform/clientstore"
	"inclusao/internal/platform/flash"
	"inclusao/internal/registration/models"
)

type rowsView struct {
	Registrations []models.Registration
	Failed        bool
}

func TestPageCarriesThemeAndNotices(t *testing.T) {
	store := clientstore.NewMemory()
	store.Set(nil, nil, clientstore.KeyTheme, "dark")
	rn, err := New(flash.Flash{}, store)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/grupo", nil)
	req.AddCookie(&http.Cookie{Name: flash.CookieName, Value: "eyJraW5kIjoiaW5mbyIsIm1lc3NhZ2UiOiJPbMOhIn0"})
	rec := httptest.NewRecorder()
	notice := flash.Success("Feito")

	rn.Page(rec, req, Page{
		Title:  "Grupo",
		Name:   "group",
		Data:   struct{ InviteURL string }{"https://chat.whatsapp.com/x"},
		Notice: &notice,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<html lang="pt-BR" class="dark">`)
	assert.Contains(t, body, `class="toast toast-info"`)
	assert.Contains(t, body, "Olá")
	assert.Contains(t, body, `class="toast toast-success"`)
	assert.Contains(t, body, "https://chat.whatsapp.com/x")
	assert.NotContains(t, body, `http-equiv="refresh"`)
}

func TestFragmentFormatsDatesInLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	rn, err := New(flash.Flash{}, clientstore.NewMemory(), WithLocation(loc))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	rn.Fragment(rec, httptest.NewRequest(http.MethodGet, "/admin/inscricoes", nil), http.StatusOK, "admin_rows", rowsView{
		Registrations: []models.Registration{{
			Name:      "Ana Souza",
			Phone:     "(21) 91234-5678",
			CreatedAt: time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC),
		}},
	})

	body := rec.Body.String()
	assert.Contains(t, body, "05/03/2024 09:30")
	assert.Contains(t, body, `data-copy="Ana Souza - (21) 91234-5678"`)
	assert.NotContains(t, body, "<html")
}

func TestFragmentEmptyList(t *testing.T) {
	rn, err := New(flash.Flash{}, clientstore.NewMemory())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	rn.Fragment(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "admin_rows", rowsView{})

	assert.Contains(t, rec.Body.String(), "Nenhuma inscrição encontrada")
}

func TestUnknownTemplateIs500(t *testing.T) {
	rn, err := New(flash.Flash{}, clientstore.NewMemory())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	rn.Fragment(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "missing", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDashboardShellFetchesRowsWhenNotLoaded(t *testing.T) {
	rn, err := New(flash.Flash{}, clientstore.NewMemory())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	rn.Page(rec, httptest.NewRequest(http.MethodGet, "/admin", nil), Page{
		Title: "Painel Administrativo",
		Name:  "admin_dashboard",
		Body:  Dashboard(DashboardView{Email: "admin@pid.org", Device: "Firefox em Linux"}),
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<html lang="pt-BR" class="light">`)
	assert.Contains(t, body, "Painel Administrativo · Programa de Inclusão Digital")
	assert.Contains(t, body, "admin@pid.org · Firefox em Linux")
	assert.Contains(t, body, `<tbody id="inscricoes">`)
	assert.Contains(t, body, "Carregando...")
	assert.Contains(t, body, `fetch("/admin/inscricoes"`)
}

func TestDashboardRendersLoadedRowsWithPageToken(t *testing.T) {
	rn, err := New(flash.Flash{}, clientstore.NewMemory())
	require.NoError(t, err)

	view := DashboardView{
		Email:  "admin@pid.org",
		Loaded: true,
		Rows: rn.Partial("admin_rows", rowsView{Registrations: []models.Registration{{
			Name: "<b>Ana</b>", Phone: "(21) 91234-5678", CreatedAt: time.Now(),
		}}}),
	}
	ctx := withCSRF(context.Background(), template.HTML(`<input type="hidden" name="csrf_token" value="t0k">`))

	var out bytes.Buffer
	require.NoError(t, Dashboard(view).Render(ctx, &out))

	body := out.String()
	assert.Contains(t, body, `<tbody id="inscricoes" data-loaded>`)
	assert.Contains(t, body, "&lt;b&gt;Ana&lt;/b&gt;")
	assert.NotContains(t, body, "Carregando...")
	assert.Equal(t, 2, strings.Count(body, `value="t0k"`), "refresh and logout forms carry the token")
}

func TestPartialUnknownTemplateFailsRender(t *testing.T) {
	rn, err := New(flash.Flash{}, clientstore.NewMemory())
	require.NoError(t, err)

	err = rn.Partial("missing", nil).Render(context.Background(), &bytes.Buffer{})
	assert.ErrorContains(t, err, `template "missing" not defined`)
}
