package dependency

import (
	"github.com/gin-gonic/gin"

	"igyan-auth-svc/src/clients"
	"igyan-auth-svc/src/internal/auth"
	"igyan-auth-svc/src/internal/cache"
	"igyan-auth-svc/src/internal/config"
	"igyan-auth-svc/src/internal/device"
	"igyan-auth-svc/src/internal/middleware"
	"igyan-auth-svc/src/internal/session"
	"igyan-auth-svc/src/internal/user"
)

type Manager struct {
	Router         *gin.Engine
	Config         *config.Configuration
	Mongodb        *clients.MongoDB
	Redis          *clients.RedisClient
	RabbitMQ       *clients.RabbitMQ
	CacheService   cache.Service
	UserRepo       user.Repository
	SessionRepo    session.Repository
	SessionService session.Service
	SessionHandler session.Handler
	Orchestrator   *auth.Orchestrator
	AuthHandler    auth.Handler
	AuthMiddleware *middleware.AuthMiddleware
}

func NewDependencyManager(router *gin.Engine,
	mongodb *clients.MongoDB,
	redisClient *clients.RedisClient,
	rabbitMQ *clients.RabbitMQ,
	cfg *config.Configuration) *Manager {
	cacheService := cache.NewCacheService(redisClient.Client, cfg)
	userRepo := user.NewUserRepository(mongodb, cfg.Database.UserCollection)
	sessionRepo := session.NewSessionRepository(mongodb, cfg.Database.SessionCollection, userRepo)
	sessionService := session.NewSessionService(sessionRepo, cacheService, cfg)
	sessionHandler := session.NewHandler(cfg, sessionService)

	audit := clients.NewAuditPublisher(cfg, rabbitMQ.Channel)
	probe := device.NewProbe(cfg.Probe.UserAgent, clients.NewIPEcho(&cfg.Probe))
	pointer := auth.NewFilePointerStore(cfg.Session.PointerPath)

	orchestrator := auth.NewOrchestrator(cfg, userRepo, sessionRepo, pointer, probe, cacheService, audit)
	authHandler := auth.NewHandler(cfg, orchestrator)
	authMiddleware := middleware.NewAuthMiddleware(cfg.Security.JwtKey, cacheService, sessionRepo)

	return &Manager{
		Router:         router,
		Config:         cfg,
		Mongodb:        mongodb,
		Redis:          redisClient,
		RabbitMQ:       rabbitMQ,
		CacheService:   cacheService,
		UserRepo:       userRepo,
		SessionRepo:    sessionRepo,
		SessionService: sessionService,
		SessionHandler: sessionHandler,
		Orchestrator:   orchestrator,
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
	}
}
