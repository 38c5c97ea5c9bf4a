// Package container assembles the application's dependency graph. It
// owns construction order and teardown; nothing here contains business
// logic.
package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/dispatcher"
	"github.com/medbridge/priorauth/internal/application/sequencer"
	"github.com/medbridge/priorauth/internal/application/service"
	"github.com/medbridge/priorauth/internal/config"
	"github.com/medbridge/priorauth/internal/domain/event"
	"github.com/medbridge/priorauth/internal/evaluation"
	openaiext "github.com/medbridge/priorauth/internal/infrastructure/external/openai"
	"github.com/medbridge/priorauth/internal/infrastructure/external/reference"
	"github.com/medbridge/priorauth/internal/infrastructure/persistence/repository"
	httpiface "github.com/medbridge/priorauth/internal/interfaces/http"
	"github.com/medbridge/priorauth/internal/tasks"
	"github.com/medbridge/priorauth/internal/worker"
	"github.com/medbridge/priorauth/pkg/database"
)

// Container holds the assembled application
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	DB            *database.DB
	Dispatcher    dispatcher.Dispatcher
	Sequencer     *sequencer.Sequencer
	ReviewService service.ReviewService
	Server        *httpiface.Server
	Workers       *worker.Manager
}

// New builds the full dependency graph from configuration
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	// Database and migrations
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = db

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	runRepo := repository.NewRunRepository(db.DB, logger)
	ledgerRepo := repository.NewLedgerRepository(db.DB, logger)
	checkpointRepo := repository.NewCheckpointRepository(db.DB, logger)
	overrideRepo := repository.NewOverrideRepository(db.DB, logger)
	txManager := repository.NewTxManager(db, logger)

	// Event dispatcher with an audit-log subscriber
	disp := dispatcher.NewDispatcher(dispatcher.WithLogger(&kvLoggerAdapter{logger: logger}))
	registerAuditSubscribers(disp, logger)
	c.Dispatcher = disp

	// Reference data adapters
	providerDir, err := reference.NewProviderDirectory(cfg.Reference.ProviderDirectoryPath, logger)
	if err != nil {
		return nil, err
	}
	codeTable, err := reference.NewCodeTable(cfg.Reference.CodeTablePath, logger)
	if err != nil {
		return nil, err
	}
	policyIndex, err := reference.NewPolicyIndex(cfg.Reference.PolicyIndexPath, logger)
	if err != nil {
		return nil, err
	}
	formatter := reference.NewTextReportFormatter()

	docScorer := openaiext.NewDocQualityScorer(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.BaseURL,
		cfg.OpenAI.Model,
		cfg.OpenAI.Temperature,
		logger,
	)

	// Evaluation pipeline
	evaluator := evaluation.NewCriterionEvaluator()
	aggregator, err := evaluation.NewAggregator(cfg.Review.Weights)
	if err != nil {
		return nil, err
	}
	resolver, err := evaluation.NewResolver(cfg.Review.Resolver)
	if err != nil {
		return nil, err
	}

	// Task handlers and sequencer
	stage := service.NewCaseStage()
	registry, err := tasks.NewRegistry(
		tasks.NewIntakeHandler(stage, logger),
		tasks.NewVerificationHandler(checkpointRepo, providerDir, codeTable, logger),
		tasks.NewPolicySearchHandler(checkpointRepo, policyIndex, logger),
		tasks.NewEvidenceMappingHandler(checkpointRepo, evaluator, logger),
		tasks.NewRecommendationHandler(checkpointRepo, docScorer, aggregator, resolver, logger),
		tasks.NewHumanDecisionHandler(checkpointRepo, overrideRepo, logger),
		tasks.NewNotificationHandler(checkpointRepo, formatter, logger),
	)
	if err != nil {
		return nil, err
	}

	seq := sequencer.New(runRepo, ledgerRepo, checkpointRepo, registry, logger,
		sequencer.WithDispatcher(disp))
	c.Sequencer = seq

	// Application service
	serviceLogger := &kvLoggerAdapter{logger: logger}
	reviewService := service.NewReviewService(
		runRepo, ledgerRepo, checkpointRepo, overrideRepo,
		txManager, stage, seq, disp, serviceLogger,
	)
	c.ReviewService = reviewService

	// HTTP server
	c.Server = httpiface.NewServer(httpiface.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, reviewService, serviceLogger)

	// Background workers
	workers := worker.NewManager(logger)
	workers.Register(worker.NewRunResumer(
		reviewService,
		cfg.Worker.ResumeInterval,
		cfg.Worker.ResumeBatch,
		logger,
	))
	c.Workers = workers

	return c, nil
}

// Close tears down in reverse construction order
func (c *Container) Close() {
	if c.Workers != nil {
		c.Workers.StopAll()
	}
	if c.Dispatcher != nil {
		_ = c.Dispatcher.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}

// registerAuditSubscribers logs every lifecycle event to the audit trail
func registerAuditSubscribers(disp dispatcher.Dispatcher, logger *zap.Logger) {
	auditHandler := func(ctx context.Context, evt *event.Event) error {
		logger.Info("Audit event",
			zap.String("type", evt.Type.String()),
			zap.String("run_id", evt.RunID),
			zap.String("case_id", evt.CaseID),
			zap.Any("payload", evt.Payload))
		return nil
	}

	for _, t := range []event.Type{
		event.TypeRunCreated,
		event.TypeRunStarted,
		event.TypeTaskStarted,
		event.TypeTaskCompleted,
		event.TypeRunHalted,
		event.TypeSectionsComplete,
		event.TypeRunCompleted,
		event.TypeDecisionProposed,
		event.TypeOverrideRecorded,
	} {
		disp.SubscribeNamed(t, "audit-log", auditHandler)
	}
}

// kvLoggerAdapter adapts zap.Logger to the key/value Logger interfaces
// used by the service, dispatcher, and HTTP layers.
type kvLoggerAdapter struct {
	logger *zap.Logger
}

func (a *kvLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Sugar().Infow(msg, keysAndValues...)
}

func (a *kvLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Sugar().Errorw(msg, keysAndValues...)
}
