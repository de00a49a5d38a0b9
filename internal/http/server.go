package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"gastos/internal/backend"
	"gastos/internal/log"
	"gastos/internal/manager"
	"gastos/internal/metrics"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/middleware/security"
	"gastos/internal/middleware/trace"
	appweb "gastos/web"
)

// readyTimeout bounds the backend probe behind /readyz.
const readyTimeout = 5 * time.Second

type Server struct {
	http.Server
	templates *template.Template
	mgr       *manager.Manager
	ready     backend.GroupLister
	logger    *log.Logger
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	started   time.Time

	shutdownOnce sync.Once
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l.WithComponent(log.ComponentHTTP) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithRateLimit sets the per-client budget for POST requests.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: perMinute})
	}
}

// NewServer configures routes and templates. ready is probed by /readyz;
// it is normally the same backend client the manager uses.
func NewServer(addr string, mgr *manager.Manager, ready backend.GroupLister, opts ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		mgr:     mgr,
		ready:   ready,
		logger:  log.New(log.Config{Component: log.ComponentHTTP}),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/painel", s.handlePanel)
	mux.HandleFunc("POST /ui/mes", s.handleMonthChange)

	mux.HandleFunc("POST /ui/gastos/{id}/editar", s.handleOpenEdit)
	mux.HandleFunc("POST /ui/gastos/{id}", s.handleUpdateExpense)
	mux.HandleFunc("POST /ui/editar/fechar", s.action("close_edit", s.mgr.CloseEditModal))

	mux.HandleFunc("POST /ui/gastos/novo/abrir", s.action("open_new_expense", s.mgr.OpenNewExpenseModal))
	mux.HandleFunc("POST /ui/gastos/novo/fechar", s.action("close_new_expense", s.mgr.CloseNewExpenseModal))
	mux.HandleFunc("POST /ui/gastos", s.handleCreateExpense)

	mux.HandleFunc("POST /ui/grupos/novo/abrir", s.action("open_new_group", s.mgr.OpenNewGroupExpenseModal))
	mux.HandleFunc("POST /ui/grupos/novo/fechar", s.action("close_new_group", s.mgr.CloseNewGroupExpenseModal))
	mux.HandleFunc("POST /ui/grupos", s.handleCreateGroup)

	mux.HandleFunc("POST /ui/sucesso/fechar", s.action("close_success", s.mgr.CloseSuccessModal))
	mux.HandleFunc("POST /ui/erro/fechar", s.action("close_error", s.mgr.CloseErrorModal))

	tracer := trace.NewMiddleware(security.ClientIP, s.logger, s.metrics)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(security.ClientIP, s.onRateLimited)

	s.Handler = tracer.Middleware(headers.Middleware(limit(mux)))
	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimitHit()
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, security.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.").
		Header("Retry-After", "60").
		Write(w)
}

// Shutdown stops the limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
