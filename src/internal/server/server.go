package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"igyan-auth-svc/src/clients"
	"igyan-auth-svc/src/internal/config"
	"igyan-auth-svc/src/internal/dependency"
)

var log = logrus.StandardLogger()

type Server struct {
	cfg *config.Configuration
}

func New(cfg *config.Configuration) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Start() error {
	gin.SetMode(s.cfg.Server.Mode)

	mongodb, err := clients.NewMongoDB(&s.cfg.Database)
	if err != nil {
		return err
	}

	redisClient, err := clients.NewRedisClient(&s.cfg.Redis)
	if err != nil {
		return err
	}

	rabbitMQ, err := clients.NewRabbitMQ(&s.cfg.Queue)
	if err != nil {
		return err
	}
	if err := rabbitMQ.SetupExchange(); err != nil {
		return err
	}

	router := gin.New()
	router.Use(gin.Recovery())

	deps := dependency.NewDependencyManager(router, mongodb, redisClient, rabbitMQ, s.cfg)
	SetupRoutes(deps)

	// Boot transition: resolve the stored session pointer before serving.
	bootCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.App.Timeout)*time.Second)
	boot := deps.Orchestrator.CheckSession(bootCtx)
	cancel()
	if boot.Success {
		log.WithField("email", boot.User.Email).Info("Boot session check: authenticated")
	} else {
		log.Info("Boot session check: anonymous")
	}

	srv := &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeout) * time.Second,
	}

	log.Infof("Listening on port %s", s.cfg.Server.Port)
	return srv.ListenAndServe()
}
