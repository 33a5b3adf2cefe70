package httpapi

import (
	"net/http"

	"sleepwise/internal/auth"
	"sleepwise/internal/config"
	"sleepwise/internal/metrics"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RouterOptions 路由依赖
type RouterOptions struct {
	Verifier           auth.Verifier
	Metrics            *metrics.Metrics
	CORSAllowedOrigins []string
	RateLimit          config.RateLimitConfig
}

// Router gorilla/mux 路由：公开路由挂在 root，业务路由挂在需要鉴权的 api 子路由
type Router struct {
	root    *mux.Router
	api     *mux.Router
	handler http.Handler
	logger  *zap.Logger
}

func NewRouter(opts RouterOptions, logger *zap.Logger) *Router {
	root := mux.NewRouter()
	root.Use(loggingMiddleware(logger))
	if opts.Metrics != nil {
		root.Use(metricsMiddleware(opts.Metrics))
		root.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}
	root.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := root.NewRoute().Subrouter()
	api.Use(authMiddleware(opts.Verifier, logger))
	if opts.RateLimit.RPS > 0 {
		api.Use(newRateLimiter(opts.RateLimit.RPS, opts.RateLimit.Burst, logger).middleware)
	}

	return &Router{
		root:    root,
		api:     api,
		handler: newCORS(opts.CORSAllowedOrigins).handler(root),
		logger:  logger,
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// RegisterUserRoutes /users（当前身份的 profile）
func (r *Router) RegisterUserRoutes(h *UserHandler) {
	r.api.HandleFunc("/users", h.GetProfile).Methods(http.MethodGet)
	r.api.HandleFunc("/users", h.CreateProfile).Methods(http.MethodPost)
	r.api.HandleFunc("/users", h.UpdateProfile).Methods(http.MethodPut)
}

// RegisterInsightRoutes /insights
func (r *Router) RegisterInsightRoutes(h *InsightHandler) {
	r.api.HandleFunc("/insights/export", h.ExportInsights).Methods(http.MethodGet)
	r.api.HandleFunc("/insights", h.ListInsights).Methods(http.MethodGet)
	r.api.HandleFunc("/insights", h.CreateInsight).Methods(http.MethodPost)
}
