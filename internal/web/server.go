package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/docker/go-units"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/essaycheck/internal/config"
	"github.com/bigredeye/essaycheck/internal/essay"
)

type server struct {
	config *config.Config
	logger *zap.Logger
	essays *essay.Service

	maxBodySize int64
}

func newServer(config *config.Config, logger *zap.Logger, essays *essay.Service) (*server, error) {
	maxBodySize, err := units.RAMInBytes(config.Server.MaxBodySize)
	if err != nil {
		return nil, errors.Wrapf(err, "Bad Server.MaxBodySize %q", config.Server.MaxBodySize)
	}
	return &server{
		config:      config,
		logger:      logger,
		essays:      essays,
		maxBodySize: maxBodySize,
	}, nil
}

func (s *server) handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(requestID())
	r.Use(ginzap.GinzapWithConfig(s.logger, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		Context: func(c *gin.Context) []zap.Field {
			return []zap.Field{zap.String("request_id", c.GetString(requestIDKey))}
		},
	}))
	r.Use(ginzap.RecoveryWithZap(s.logger, true))

	r.Use(cors.New(corsConfig()))

	r.Use(limitBody(s.maxBodySize))

	setupEssayService(s, r)

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong "+fmt.Sprint(time.Now().Unix()))
	})

	return r
}

// Any origin may call the API with credentials. Browsers do not honor a "*"
// header wildcard on credentialed requests, so request headers are listed.
func corsConfig() cors.Config {
	c := cors.DefaultConfig()
	c.AllowOriginFunc = func(origin string) bool { return true }
	c.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	c.AllowHeaders = corsAllowedHeaders
	c.ExposeHeaders = []string{requestIDHeader}
	c.AllowCredentials = true
	return c
}

var corsAllowedHeaders = []string{
	"Origin",
	"Accept",
	"Accept-Language",
	"Authorization",
	"Cache-Control",
	"Content-Language",
	"Content-Type",
	"Content-Length",
	"X-Requested-With",
	requestIDHeader,
}

func (s *server) run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.config.Server.ListenAddress,
		Handler: s.handler(),
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.String("bind_address", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "Failed to shutdown server")
	}
	return nil
}
