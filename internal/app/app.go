package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"quest-scheduler-go/internal/broker/kafka"
	"quest-scheduler-go/internal/config"
	"quest-scheduler-go/internal/db"
	calendardomain "quest-scheduler-go/internal/domain/calendar"
	campaigndomain "quest-scheduler-go/internal/domain/campaign"
	"quest-scheduler-go/internal/domain/notify"
	searchdomain "quest-scheduler-go/internal/domain/search"
	sessiondomain "quest-scheduler-go/internal/domain/session"
	"quest-scheduler-go/internal/repository/inmemory"
	calendarrepo "quest-scheduler-go/internal/repository/postgres/calendar"
	campaignrepo "quest-scheduler-go/internal/repository/postgres/campaign"
	searchrepo "quest-scheduler-go/internal/repository/postgres/search"
	sessionrepo "quest-scheduler-go/internal/repository/postgres/session"
	"quest-scheduler-go/internal/scheduler"
	"quest-scheduler-go/internal/transport/httpserver"
	"quest-scheduler-go/internal/transport/httpserver/handler"
	"quest-scheduler-go/internal/transport/httpserver/middleware"
	"quest-scheduler-go/pkg/logger"
)

type App struct {
	cfg        config.Config
	log        logger.Logger
	httpServer *http.Server
	db         *gorm.DB
	publisher  *kafka.Publisher
	scheduler  *scheduler.Scheduler
	stop       chan struct{}
}

type repositories struct {
	campaigns campaigndomain.Repository
	sessions  sessiondomain.Repository
	calendar  calendardomain.Repository
	search    searchdomain.Repository
}

func New(log logger.Logger) (*App, error) {
	log.Info("app: loading config")
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, log)
}

func NewWithConfig(cfg config.Config, log logger.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log, stop: make(chan struct{})}

	repos, err := a.initStorage()
	if err != nil {
		return nil, err
	}

	var notifier notify.Notifier = notify.Noop()
	if cfg.Kafka.Enabled {
		log.Info("app: initializing kafka publisher", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		a.publisher = kafka.NewPublisher(cfg.Kafka, log)
		notifier = a.publisher
	}

	campaigns := campaigndomain.NewService(repos.campaigns,
		campaigndomain.WithNotifier(notifier),
		campaigndomain.WithLogger(log),
	)
	sessions := sessiondomain.NewService(repos.sessions,
		sessiondomain.WithNotifier(notifier),
		sessiondomain.WithLogger(log),
	)
	calendar := calendardomain.NewService(repos.calendar)
	search := searchdomain.NewService(repos.search)

	if cfg.Scheduler.Enabled {
		log.Info("app: initializing status scheduler", "spec", cfg.Scheduler.Spec)
		a.scheduler, err = scheduler.New(cfg.Scheduler.Spec, sessions, log)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, log)
		limiter.StartCleanup(time.Minute, a.stop)
	}

	log.Info("app: initializing router")
	handlers := handler.New(campaigns, sessions, calendar, search, log)
	router := httpserver.NewRouter(cfg, handlers, limiter, log)

	log.Info("app: initializing http server")
	a.httpServer = httpserver.New(cfg, router)
	return a, nil
}

func (a *App) initStorage() (repositories, error) {
	if a.cfg.StorageDriver == config.StorageDriverMemory {
		a.log.Warn("app: using in-memory storage, data is lost on restart")
		store := inmemory.NewStore()
		return repositories{
			campaigns: inmemory.NewCampaignRepository(store),
			sessions:  inmemory.NewSessionRepository(store),
			calendar:  inmemory.NewCalendarRepository(store),
			search:    inmemory.NewSearchRepository(store),
		}, nil
	}

	a.log.Info("app: initializing database")
	dbConn, err := db.NewPostgres(a.cfg.DB, a.log)
	if err != nil {
		return repositories{}, fmt.Errorf("app: connect database: %w", err)
	}
	a.db = dbConn

	if a.cfg.DB.AutoMigrate {
		if err := db.Migrate(dbConn, a.log); err != nil {
			_ = a.Close()
			return repositories{}, fmt.Errorf("app: migrate database: %w", err)
		}
	}

	return repositories{
		campaigns: campaignrepo.NewPostgres(dbConn),
		sessions:  sessionrepo.NewPostgres(dbConn),
		calendar:  calendarrepo.NewPostgres(dbConn),
		search:    searchrepo.NewPostgres(dbConn),
	}, nil
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

// Start launches background jobs. The HTTP server is started by the caller.
func (a *App) Start() {
	if a.scheduler != nil {
		a.scheduler.Start()
	}
}

// Shutdown stops background jobs, waiting at most until ctx expires.
func (a *App) Shutdown(ctx context.Context) error {
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}
	if a.scheduler == nil {
		return nil
	}
	return a.scheduler.Stop(ctx)
}

func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka publisher: %w", err))
		}
	}
	if a.db != nil {
		sqlDB, err := a.db.DB()
		if err != nil {
			errs = append(errs, err)
		} else if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
