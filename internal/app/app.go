package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ResearchPosts/internal/classifier"
	"ResearchPosts/internal/config"
	"ResearchPosts/internal/infrastructure/llm"
	"ResearchPosts/internal/infrastructure/parser"
	"ResearchPosts/internal/infrastructure/redirect"
	"ResearchPosts/internal/infrastructure/scheduler"
	"ResearchPosts/internal/infrastructure/storage"
	"ResearchPosts/internal/infrastructure/telegram"
	"ResearchPosts/internal/logging"
	"ResearchPosts/internal/ports"
	"ResearchPosts/internal/resolver"
	"ResearchPosts/internal/scanner"
	"ResearchPosts/internal/usecase"
)

const stopTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	db       *sql.DB
}

// New builds the application. A configured pattern that does not compile or an
// unreachable history database is reported as an error.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	cls, err := classifier.New(cfg.Classifier.Keywords, cfg.Classifier.ExtraPatterns)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	baseLogger.Info("classifier ready", "keywords", cls.Keywords(), "patterns", len(cls.Patterns()))

	registry := scanner.NewRegistry()
	registry.Register(parser.NewJSONScanner(baseLogger.With("component", "scanner.json")))
	registry.Register(parser.NewHTMLScanner(nil, baseLogger.With("component", "scanner.html")))

	deps := usecase.PipelineDeps{
		Source:       parser.NewStrategySource(registry, cfg.Sources, baseLogger.With("component", "source")),
		Store:        storage.NewJSONFileStore(cfg.Store.Path),
		Classifier:   cls,
		Resolver:     resolver.New(cfg.Classifier.ResearchDomains, cfg.Classifier.ResearchFileExts),
		Logger:       baseLogger.With("component", "pipeline"),
		RelevantOnly: cfg.Store.KeepRelevantOnly(),
	}

	if cfg.Redirects.Enabled {
		deps.Redirects = redirect.NewHeadResolver(cfg.Redirects, nil)
	}

	if cfg.ChatGPT.APIKey != "" {
		client := llm.NewChatGPTClient(cfg.ChatGPT)
		deps.Summarizer = client
		deps.Tagger = client
		if cfg.Store.SummariesPath != "" {
			deps.Summaries = storage.NewSummaryFile(cfg.Store.SummariesPath)
		}
	}

	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		deps.Notifier = telegram.NewNotifier(tg)
	}

	application := &Application{cfg: cfg, logger: baseLogger}

	if cfg.Database.DSN != "" {
		driver := cfg.Database.Driver
		if driver == "" {
			driver = storage.DriverSQLite
		}
		db, err := storage.OpenDatabase(ctx, driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		repo := storage.NewSQLRepository(db, driver)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		deps.Repository = repo
		application.db = db
	}

	application.pipeline = usecase.NewPipeline(deps)
	return application, nil
}

// Run executes the pipeline once or hands it to the configured scheduler until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	if a.pipeline == nil {
		return nil
	}

	driver := a.driver()
	if driver == nil {
		now := time.Now().In(a.cfg.Scheduler.Location())
		report, err := a.pipeline.Process(ctx, now)
		if err != nil {
			return err
		}
		a.logger.Info("run finished",
			"batches", report.Batches,
			"seen", report.Seen,
			"added", report.Added,
			"retained", report.Retained,
			"summarized", report.Summarized)
		return nil
	}

	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "mode", a.cfg.Scheduler.Mode)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return sched.Stop(stopCtx)
}

func (a *Application) driver() ports.Scheduler {
	switch a.cfg.Scheduler.Mode {
	case config.ModeInterval:
		return scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval)
	case config.ModeWatch:
		return scheduler.NewFileWatchScheduler(watchPaths(a.cfg.Sources), a.logger.With("component", "watcher"))
	default:
		return nil
	}
}

// watchPaths lists the local files among the configured sources.
func watchPaths(sources []config.SourceConfig) []string {
	var paths []string
	for _, src := range sources {
		if src.Path == "" || strings.HasPrefix(src.Path, "http://") || strings.HasPrefix(src.Path, "https://") {
			continue
		}
		paths = append(paths, src.Path)
	}
	return paths
}

func (a *Application) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
}
