package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultPort       = "54321"
	defaultAnonKey    = "supabase-mock-anon-key"
	defaultAdminEmail = "admin@pid.local"
	defaultAdminPass  = "admin123"
	defaultLatencyMs  = "0"
	tokenTTL          = time.Hour
)

type user struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	password string
	admin    bool
}

type registration struct {
	ID        string    `json:"id"`
	Nome      string    `json:"nome"`
	Telefone  string    `json:"telefone"`
	CreatedAt time.Time `json:"created_at"`
}

type registrationWrite struct {
	Nome     string `json:"nome"`
	Telefone string `json:"telefone"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *user  `json:"user"`
}

// ErrorResponse mimics PostgREST; GoTrue errors use msg and error_code.
type ErrorResponse struct {
	Code      string `json:"code,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
	Msg       string `json:"msg,omitempty"`
}

var (
	anonKey   = getEnv("ANON_KEY", defaultAnonKey)
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)
	jwtSecret = []byte(getEnv("JWT_SECRET", "supabase-mock-jwt-secret"))
)

type state struct {
	mu            sync.Mutex
	users         map[string]*user // by email
	tokens        map[string]*user // live access tokens
	registrations map[string]*registration
}

func newState() *state {
	s := &state{
		users:         make(map[string]*user),
		tokens:        make(map[string]*user),
		registrations: make(map[string]*registration),
	}
	admin := &user{
		ID:       uuid.NewString(),
		Email:    getEnv("ADMIN_EMAIL", defaultAdminEmail),
		password: getEnv("ADMIN_PASSWORD", defaultAdminPass),
		admin:    true,
	}
	s.users[admin.Email] = admin
	// A signed-up user without an admins row, for the denied login path.
	plain := &user{ID: uuid.NewString(), Email: "usuario@pid.local", password: defaultAdminPass}
	s.users[plain.Email] = plain
	return s
}

func main() {
	port := getEnv("PORT", defaultPort)
	s := newState()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/v1/health", handleHealth)
	mux.HandleFunc("POST /auth/v1/token", s.withAPIKey(s.handleToken))
	mux.HandleFunc("POST /auth/v1/logout", s.withAPIKey(s.handleLogout))
	mux.HandleFunc("GET /auth/v1/user", s.withAPIKey(s.handleUser))
	mux.HandleFunc("/rest/v1/inscricoes", s.withAPIKey(s.handleRegistrations))
	mux.HandleFunc("GET /rest/v1/admins", s.withAPIKey(s.handleAdmins))

	log.Printf("Mock Supabase starting on port %s", port)
	log.Printf("Anon key: %s", anonKey)
	log.Printf("Admin: %s / %s", getEnv("ADMIN_EMAIL", defaultAdminEmail), getEnv("ADMIN_PASSWORD", defaultAdminPass))
	log.Printf("Simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "GoTrue",
		"service": "supabase-mock",
		"version": "1.0.0",
	})
}

func (s *state) withAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(latencyMs) * time.Millisecond)
		if r.Header.Get("apikey") != anonKey {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "Invalid API key"})
			return
		}
		next(w, r)
	}
}

// caller resolves the bearer token; the anon key resolves to nil.
func (s *state) caller(r *http.Request) (*user, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == anonKey {
		return nil, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.tokens[token]
	return u, ok
}

func (s *state) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") != "password" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{ErrorCode: "unsupported_grant_type", Msg: "Unsupported grant type"})
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{ErrorCode: "validation_failed", Msg: "Invalid request body"})
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(req.Email))]
	if !ok || u.password != req.Password {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{ErrorCode: "invalid_credentials", Msg: "Invalid login credentials"})
		return
	}
	now := time.Now()
	token, err := mintToken(u, now)
	if err != nil {
		s.mu.Unlock()
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{ErrorCode: "unexpected_failure", Msg: err.Error()})
		return
	}
	s.tokens[token] = u
	s.mu.Unlock()

	log.Printf("sign in: %s", u.Email)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  token,
		RefreshToken: uuid.NewString(),
		TokenType:    "bearer",
		ExpiresIn:    int64(tokenTTL.Seconds()),
		ExpiresAt:    now.Add(tokenTTL).Unix(),
		User:         u,
	})
}

func (s *state) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	_, ok := s.tokens[token]
	delete(s.tokens, token)
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{ErrorCode: "bad_jwt", Msg: "invalid JWT"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *state) handleUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.caller(r)
	if !ok || u == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{ErrorCode: "bad_jwt", Msg: "invalid JWT"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *state) handleAdmins(w http.ResponseWriter, r *http.Request) {
	u, ok := s.caller(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Code: "PGRST301", Message: "JWT expired"})
		return
	}
	want := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
	rows := []map[string]string{}
	// admins are only visible to themselves
	if u != nil && u.admin && u.ID == want {
		rows = append(rows, map[string]string{"id": u.ID})
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *state) handleRegistrations(w http.ResponseWriter, r *http.Request) {
	u, ok := s.caller(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Code: "PGRST301", Message: "JWT expired"})
		return
	}
	isAdmin := u != nil && u.admin

	switch r.Method {
	case http.MethodPost:
		s.insertRegistrations(w, r, isAdmin)
	case http.MethodGet:
		if !isAdmin {
			writeJSON(w, http.StatusOK, []registration{})
			return
		}
		writeJSON(w, http.StatusOK, s.listByName())
	case http.MethodPatch:
		if !isAdmin {
			writeJSON(w, http.StatusOK, []registration{})
			return
		}
		s.updateRegistration(w, r)
	case http.MethodDelete:
		if !isAdmin {
			writeJSON(w, http.StatusOK, []registration{})
			return
		}
		s.deleteRegistration(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Message: "method not allowed"})
	}
}

func (s *state) insertRegistrations(w http.ResponseWriter, r *http.Request, canSelect bool) {
	var rows []registrationWrite
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "PGRST102", Message: "Invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	created := make([]registration, 0, len(rows))
	for _, row := range rows {
		if msg, bad := checkRow(row); bad {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "23514", Message: msg})
			return
		}
		if s.phoneTaken(row.Telefone, "") {
			writeJSON(w, http.StatusConflict, ErrorResponse{Code: "23505", Message: `duplicate key value violates unique constraint "inscricoes_telefone_key"`})
			return
		}
		rec := &registration{ID: uuid.NewString(), Nome: row.Nome, Telefone: row.Telefone, CreatedAt: time.Now().UTC()}
		s.registrations[rec.ID] = rec
		created = append(created, *rec)
	}
	log.Printf("inserted %d registration(s)", len(created))

	if !strings.Contains(r.Header.Get("Prefer"), "return=representation") || !canSelect {
		w.WriteHeader(http.StatusCreated)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *state) listByName() []registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]registration, 0, len(s.registrations))
	for _, rec := range s.registrations {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nome < out[j].Nome })
	return out
}

func (s *state) updateRegistration(w http.ResponseWriter, r *http.Request) {
	regID := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
	var patch registrationWrite
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "PGRST102", Message: "Invalid body"})
		return
	}
	if msg, bad := checkRow(patch); bad {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "23514", Message: msg})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.registrations[regID]
	if !ok {
		writeJSON(w, http.StatusOK, []registration{})
		return
	}
	if s.phoneTaken(patch.Telefone, regID) {
		writeJSON(w, http.StatusConflict, ErrorResponse{Code: "23505", Message: `duplicate key value violates unique constraint "inscricoes_telefone_key"`})
		return
	}
	rec.Nome = patch.Nome
	rec.Telefone = patch.Telefone
	writeJSON(w, http.StatusOK, []registration{*rec})
}

func (s *state) deleteRegistration(w http.ResponseWriter, r *http.Request) {
	regID := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.registrations[regID]
	if !ok {
		writeJSON(w, http.StatusOK, []registration{})
		return
	}
	delete(s.registrations, regID)
	writeJSON(w, http.StatusOK, []registration{*rec})
}

func (s *state) phoneTaken(phone, except string) bool {
	for id, rec := range s.registrations {
		if id != except && rec.Telefone == phone {
			return true
		}
	}
	return false
}

// checkRow mirrors the table's check constraints.
func checkRow(row registrationWrite) (string, bool) {
	if strings.TrimSpace(row.Nome) == "" {
		return `new row violates check constraint "inscricoes_nome_check"`, true
	}
	if strings.TrimSpace(row.Telefone) == "" {
		return `new row violates check constraint "inscricoes_telefone_check"`, true
	}
	return "", false
}

func mintToken(u *user, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"role":  "authenticated",
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
		"jti":   uuid.NewString(),
	})
	return token.SignedString(jwtSecret)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return intValue
}
