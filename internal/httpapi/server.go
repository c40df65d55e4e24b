package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/optimode/mailscore"
	apimw "github.com/optimode/mailscore/internal/httpapi/middleware"
)

// Validator is the part of *mailscore.Validator the handlers need.
type Validator interface {
	Validate(ctx context.Context, email string) (mailscore.Result, error)
	ValidateBulk(ctx context.Context, emails []string, maxCount int, opts ...mailscore.ConcurrencyOptions) (mailscore.BulkResult, error)
}

type Server struct {
	Logger    *zap.Logger
	Validator Validator
	MaxBulk   int
	now       func() time.Time
}

func NewServer(l *zap.Logger, v Validator, maxBulk int) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Validator: v, MaxBulk: maxBulk, now: time.Now}
}

type RouterOptions struct {
	APIKey     string       // empty disables the key gate
	Limiter    *apimw.Store // nil disables rate limiting
	TrustProxy bool         // rate limit on X-Forwarded-For
}

// maxBodyBytes matches the usual 100kb JSON body cap.
const maxBodyBytes = 100 << 10

// securityHeaders is the conservative header set most API gateways add.
var securityHeaders = map[string]string{
	"Content-Security-Policy":           "default-src 'none'; frame-ancestors 'none'",
	"Cross-Origin-Opener-Policy":        "same-origin",
	"Cross-Origin-Resource-Policy":      "same-origin",
	"Origin-Agent-Cluster":              "?1",
	"Referrer-Policy":                   "no-referrer",
	"Strict-Transport-Security":         "max-age=15552000; includeSubDomains",
	"X-Content-Type-Options":            "nosniff",
	"X-DNS-Prefetch-Control":            "off",
	"X-Download-Options":                "noopen",
	"X-Frame-Options":                   "SAMEORIGIN",
	"X-Permitted-Cross-Domain-Policies": "none",
	"X-XSS-Protection":                  "0",
}

func (s *Server) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(apimw.RequestID)
	r.Use(apimw.AccessLog(s.Logger))
	r.Use(middleware.Recoverer)
	for k, v := range securityHeaders {
		r.Use(middleware.SetHeader(k, v))
	}
	r.Use(cors.AllowAll().Handler)
	r.Use(apimw.RateLimit(opts.Limiter, apimw.RateLimitOptions{KeyFn: apimw.ClientIP(opts.TrustProxy)}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(apimw.APIKey(opts.APIKey))
		r.Get("/validate", s.handleValidateQuery)
		r.Post("/validate", s.handleValidateBody)
		r.Post("/validate/bulk", s.handleValidateBulk)
	})

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleNotFound)
	return r
}
