package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inclusao/internal/platform/health"
	"inclusao/pkg/platform/middleware/metadata"
	request "inclusao/pkg/platform/middleware/request"
	"inclusao/pkg/platform/validation"
	"inclusao/pkg/requestcontext"
)

// CSRF cookie and form field names.
const (
	csrfCookieName = "pid_csrf"
	csrfFieldName  = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
)

// Routes is a feature handler that mounts its own routes.
type Routes interface {
	Register(r chi.Router)
}

type Config struct {
	// CSRFKey must be 32 bytes; longer keys are truncated.
	CSRFKey        string
	CookieSecure   bool
	TrustedProxies []string
	RequestTimeout time.Duration
}

// Deps are the shared collaborators of the router.
type Deps struct {
	Logger   *slog.Logger
	Latency  *request.Metrics
	Gatherer prometheus.Gatherer
	Health   *health.Handler
}

// NewRouter wires probes and metrics outside CSRF protection and every
// page route inside it.
func NewRouter(cfg Config, deps Deps, pages ...Routes) http.Handler {
	logger := deps.Logger
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(cfg.TrustedProxies).Handler)
	r.Use(request.Logger(logger))
	r.Use(request.Timeout(timeout))
	r.Use(request.LatencyMiddleware(deps.Latency, routePattern))
	r.Use(request.BodyLimit(validation.MaxBodySize))

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if !cfg.CookieSecure {
			r.Use(plaintextHTTP)
		}
		r.Use(csrf.Protect(csrfKey(cfg.CSRFKey),
			csrf.Secure(cfg.CookieSecure),
			csrf.Path("/"),
			csrf.HttpOnly(true),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.CookieName(csrfCookieName),
			csrf.FieldName(csrfFieldName),
			csrf.RequestHeader(csrfHeaderName),
			csrf.ErrorHandler(csrfFailure(logger)),
		))
		for _, p := range pages {
			p.Register(r)
		}
	})

	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

func csrfKey(key string) []byte {
	b := []byte(key)
	if len(b) > 32 {
		b = b[:32]
	}
	return b
}

// plaintextHTTP tells the CSRF middleware the site is served without TLS,
// which relaxes the Referer check for local development.
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func csrfFailure(logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger.WarnContext(ctx, "csrf validation failed",
			"request_id", requestcontext.RequestID(ctx),
			"reason", csrf.FailureReason(r),
			"path", r.URL.Path,
		)
		http.Error(w, "Requisição inválida. Recarregue a página e tente novamente.", http.StatusForbidden)
	})
}
