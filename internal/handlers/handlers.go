package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"authgate/api/internal/audit"
	"authgate/api/internal/config"
	"authgate/api/internal/metrics"
	"authgate/api/internal/middleware"
	"authgate/api/internal/models"
	"authgate/api/internal/security"
	"authgate/api/internal/service"
	"authgate/api/internal/session"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	DB          Pinger
	Cache       redis.UniversalClient
	AuthService *service.AuthService
	Tokens      *security.TokenService
	Transport   *session.Transport
	Admission   middleware.Evaluator
	Audit       audit.Sink
	Metrics     *metrics.Metrics
}

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	db          Pinger
	cache       redis.UniversalClient
	authService *service.AuthService
	tokens      *security.TokenService
	transport   *session.Transport
	admission   middleware.Evaluator
	audit       audit.Sink
	metrics     *metrics.Metrics
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Dependencies) HandlerSet {
	sink := deps.Audit
	if sink == nil {
		sink = audit.NopSink{}
	}
	return HandlerSet{
		log:         log,
		cfg:         cfg,
		db:          deps.DB,
		cache:       deps.Cache,
		authService: deps.AuthService,
		tokens:      deps.Tokens,
		transport:   deps.Transport,
		admission:   deps.Admission,
		audit:       sink,
		metrics:     deps.Metrics,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(
		middleware.Identify(h.tokens, h.transport),
		middleware.Admission(h.admission, h.audit, h.metrics, h.log),
	)
	{
		auth := v1.Group("/auth")
		auth.POST("/sign-up", h.SignUp)
		auth.POST("/sign-in", h.SignIn)
		auth.POST("/sign-out", h.SignOut)
		auth.GET("/me", middleware.RequireSession(), h.Me)
	}

	admin := v1.Group("/admin")
	admin.Use(
		middleware.RequireSession(),
		middleware.RequireRoles(models.RoleAdmin),
	)
	admin.GET("/users", h.AdminFindUser)
}
