//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/knowledgebase/internal/bootstrap"
	"github.com/yanqian/knowledgebase/internal/domain/audit"
	"github.com/yanqian/knowledgebase/internal/domain/question"
	"github.com/yanqian/knowledgebase/internal/infra/config"
	httpiface "github.com/yanqian/knowledgebase/internal/interface/http"
	"github.com/yanqian/knowledgebase/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideClock,
		provideQuestionConfig,
		providePostgresPool,
		provideSQLiteDB,
		provideQuestionRepository,
		provideAuditRepository,
		provideEmbedder,
		question.NewService,
		audit.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
