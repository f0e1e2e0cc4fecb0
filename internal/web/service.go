package web

import (
	"go.uber.org/zap"

	"github.com/bigredeye/essaycheck/internal/config"
	"github.com/bigredeye/essaycheck/internal/essay"
)

type webService struct {
	server *server
	config *config.Config
	essays *essay.Service
	log    *zap.Logger
}
