// Package app wires configuration, storage, processors and background tasks
// into one runnable unit.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"vigil/internal/auth"
	"vigil/internal/cache"
	"vigil/internal/campaign"
	"vigil/internal/config"
	"vigil/internal/content"
	"vigil/internal/db"
	httpx "vigil/internal/http"
	"vigil/internal/jobs"
	"vigil/internal/mail"
	"vigil/internal/marketing"
	"vigil/internal/reminder"
	"vigil/internal/scheduler"
	"vigil/internal/scripture"
	"vigil/internal/translate"
	"vigil/internal/translation"
)

// Container holds every long-lived dependency. Build it once with NewContainer.
type Container struct {
	Config config.Config
	Log    *slog.Logger

	DB    *gorm.DB
	Redis *redis.Client
	JWT   *auth.JWT

	Jobs      *jobs.Repo
	Registry  *jobs.Registry
	Tracker   *jobs.Tracker
	Scheduler *scheduler.Scheduler

	Marketing    *marketing.Service
	Translations *translation.Service
	Reminders    *reminder.Service

	Server *http.Server

	stale *staleRecovery
}

type containerConfig struct {
	db         *gorm.DB
	redis      *redis.Client
	mailer     mail.Sender
	translator translate.Translator
	scripture  scripture.Lookup
}

type ContainerOption func(*containerConfig)

// WithDB skips opening a connection from DATABASE_URL.
func WithDB(gdb *gorm.DB) ContainerOption {
	return func(c *containerConfig) { c.db = gdb }
}

func WithRedis(client *redis.Client) ContainerOption {
	return func(c *containerConfig) { c.redis = client }
}

func WithMailer(s mail.Sender) ContainerOption {
	return func(c *containerConfig) { c.mailer = s }
}

func WithTranslator(t translate.Translator) ContainerOption {
	return func(c *containerConfig) { c.translator = t }
}

func WithScripture(l scripture.Lookup) ContainerOption {
	return func(c *containerConfig) { c.scripture = l }
}

func NewContainer(ctx context.Context, cfg config.Config, log *slog.Logger, opts ...ContainerOption) (*Container, error) {
	opt := &containerConfig{}
	for _, o := range opts {
		o(opt)
	}

	gdb := opt.db
	if gdb == nil {
		var err error
		if gdb, err = db.Connect(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
	}

	redisClient := opt.redis
	if redisClient == nil && cfg.RedisURL != "" {
		var err error
		if redisClient, err = cache.Connect(ctx, cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	mailer := opt.mailer
	if mailer == nil {
		mailer = mail.New(cfg.Mail)
	}
	translator := opt.translator
	if translator == nil {
		translator = translate.New(cfg.Translation)
	}
	lookup := opt.scripture
	if lookup == nil {
		lookup = scripture.New(cfg.Scripture)
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	jobsRepo := jobs.NewRepo(gdb)
	campaigns := &campaign.Repo{DB: gdb}
	contents := &content.Repo{DB: gdb}
	emails := &marketing.Repo{DB: gdb}
	translationRepo := &translation.Repo{DB: gdb}
	subs := &reminder.Repo{DB: gdb}

	marketingSvc := &marketing.Service{
		DB:        gdb,
		Emails:    emails,
		Jobs:      jobsRepo,
		Campaigns: campaigns,
		Log:       log.With("component", "marketing"),
	}
	translationSvc := &translation.Service{
		Repo:      translationRepo,
		Contents:  contents,
		Retention: cfg.Translation.Retention,
		Log:       log.With("component", "translation"),
	}
	reminderSvc := &reminder.Service{
		Subs:      subs,
		Campaigns: campaigns,
		Links:     jwtSvc,
		Log:       log.With("component", "reminder"),
	}

	var emailCache cache.Cache[marketing.Email]
	if redisClient != nil {
		emailCache = cache.NewRedis[marketing.Email](redisClient, "vigil:marketing_email:", cfg.Jobs.CacheTTL)
	} else {
		emailCache = cache.NewMemory[marketing.Email](256, cfg.Jobs.CacheTTL)
	}

	registry := jobs.NewRegistry()
	marketingProc := &marketing.Processor{
		Emails:  emails,
		Cache:   emailCache,
		Mailer:  mailer,
		Links:   jwtSvc,
		BaseURL: cfg.PublicBaseURL,
		Log:     log.With("component", "marketing"),
	}
	reminderProc := &reminder.Processor{
		Subs:      subs,
		Directory: campaigns,
		Mailer:    mailer,
		Links:     jwtSvc,
		BaseURL:   cfg.PublicBaseURL,
	}
	if err := jobs.Register(registry, marketingProc.Handle); err != nil {
		return nil, err
	}
	if err := jobs.Register(registry, reminderProc.Handle); err != nil {
		return nil, err
	}

	tracker := jobs.NewTracker(jobsRepo)
	tracker.Register(marketing.ReferenceType, marketingSvc.Finalize)
	tracker.RegisterSource(translation.ReferenceType, translationRepo, translationSvc.Finalize)

	sched := scheduler.New(log.With("component", "scheduler"))

	jobsRunner := &jobs.Runner{
		Store:     jobsRepo,
		Registry:  registry,
		Tracker:   tracker,
		Log:       log.With("component", "jobs"),
		BatchSize: cfg.Jobs.BatchSize,
	}
	translationRunner := &translation.Runner{
		Store: translationRepo,
		Processor: &translation.Processor{
			Contents:   contents,
			Translator: translator,
			Scripture:  lookup,
		},
		Tracker:   tracker,
		Log:       log.With("component", "translation"),
		BatchSize: cfg.Translation.BatchSize,
	}
	dispatcher := &reminder.Dispatcher{
		DB:        gdb,
		Subs:      subs,
		Jobs:      jobsRepo,
		BatchSize: cfg.Reminder.BatchSize,
		Log:       log.With("component", "reminder"),
	}

	sched.Add(scheduler.Every("jobs", cfg.Jobs.PollInterval, jobsRunner.Tick))
	sched.Add(scheduler.Every("translations", cfg.Translation.PollInterval, translationRunner.Tick))
	sched.Add(scheduler.Every("reminders", cfg.Reminder.PollInterval, dispatcher.Tick))
	stale := &staleRecovery{
		Jobs:         jobsRepo,
		Translations: translationRepo,
		Tracker:      tracker,
		OlderThan:    cfg.Jobs.StaleAfter,
		Log:          log.With("component", "recovery"),
	}
	sched.Add(scheduler.Every("stale-recover", cfg.Jobs.StaleAfter, stale.Tick))
	cleanup, err := scheduler.Cron("translations-cleanup", cfg.Translation.CleanupSchedule, translationSvc.Cleanup)
	if err != nil {
		return nil, fmt.Errorf("translation cleanup schedule: %w", err)
	}
	sched.Add(cleanup)

	router := httpx.NewRouter(cfg, httpx.Services{
		DB:            gdb,
		JWT:           jwtSvc,
		Marketing:     marketingSvc,
		Jobs:          jobsRepo,
		Translations:  translationSvc,
		Subscriptions: reminderSvc,
	})

	return &Container{
		Config:       cfg,
		Log:          log,
		DB:           gdb,
		Redis:        redisClient,
		JWT:          jwtSvc,
		Jobs:         jobsRepo,
		Registry:     registry,
		Tracker:      tracker,
		Scheduler:    sched,
		Marketing:    marketingSvc,
		Translations: translationSvc,
		Reminders:    reminderSvc,
		Server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		stale: stale,
	}, nil
}

// Start migrates, recovers jobs abandoned by a previous process, seeds the
// admin account and starts the scheduler. It does not serve HTTP.
func (c *Container) Start(ctx context.Context) error {
	if err := db.AutoMigrateAndIndexes(c.DB.WithContext(ctx)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := c.stale.Tick(ctx); err != nil {
		return err
	}
	created, err := auth.EnsureAdmin(ctx, c.DB, c.Config.AdminEmail, c.Config.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		c.Log.Info("admin user created", "email", c.Config.AdminEmail)
	}

	c.Scheduler.Start()
	return nil
}

// Run starts the container, serves HTTP and shuts everything down when ctx ends.
func (c *Container) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.Log.Info("listening", "addr", c.Server.Addr)
		if err := c.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return c.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown stops HTTP first, then waits for in-flight ticks.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	if err := c.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := c.Scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	return errors.Join(errs...)
}
