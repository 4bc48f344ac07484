package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kobosync/internal/annotations"
	"github.com/mrlokans/kobosync/internal/auth"
	"github.com/mrlokans/kobosync/internal/changelog"
	"github.com/mrlokans/kobosync/internal/config"
	"github.com/mrlokans/kobosync/internal/covers"
	"github.com/mrlokans/kobosync/internal/database/etags"
	http_controllers "github.com/mrlokans/kobosync/internal/http"
	"github.com/mrlokans/kobosync/internal/library"
	"github.com/mrlokans/kobosync/internal/prosa"
	"github.com/mrlokans/kobosync/internal/readingstate"
	"github.com/mrlokans/kobosync/internal/scheduler"
	"github.com/mrlokans/kobosync/internal/shelves"
	"github.com/mrlokans/kobosync/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// SIGKILL cannot be caught, so only INT and TERM are handled.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener so in-flight tasks finish first
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// maintenanceJobs maps the configured schedules onto task kinds.
func maintenanceJobs(cfg *config.Config) []scheduler.Job {
	purge := scheduler.Job{Kind: tasks.KindPurgeBookTokens}
	if cfg.TokenPurge.Enabled {
		purge.Schedule = cfg.TokenPurge.Schedule
	}
	return []scheduler.Job{
		purge,
		{Kind: tasks.KindCleanupAudit, Schedule: cfg.Audit.CleanupSchedule},
		{Kind: tasks.KindPruneCovers, Schedule: cfg.Covers.PruneSchedule},
	}
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting KoboSync v%s", version)

	stores, err := OpenStores(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize stores: %v", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	prosaClient := prosa.NewClient(cfg.Prosa.URL, cfg.Prosa.Timeout, cfg.Prosa.MaxRetries+1)
	log.Printf("Content backend: %s", cfg.Prosa.URL)

	coverCache, err := covers.NewCache(cfg.Covers.CacheDir, prosaClient)
	if err != nil {
		log.Fatalf("Failed to initialize cover cache: %v", err)
	}
	log.Printf("Cover cache initialized at %s", coverCache.CacheDir())

	annotationService := annotations.NewService(prosaClient, etags.NewRepository(stores.DB.DB))
	libraryService := library.NewService(prosaClient, stores.Tokens, annotationService, coverCache, stores.Audit)
	shelfService := shelves.NewService(prosaClient)
	states := readingstate.NewTranslator(prosaClient)
	engine := changelog.NewEngine(prosaClient, states, libraryService, shelfService, annotationService, coverCache)

	rateLimiter := auth.NewRateLimiter(cfg.Auth.RateLimitRPS, cfg.Auth.RateLimitBurst)
	defer rateLimiter.Stop()

	taskDefaults := tasks.Defaults{
		AuditRetentionDays: cfg.Audit.RetentionDays,
		CoverMaxAge:        cfg.Covers.CacheMaxAge,
	}

	coversProbe := http_controllers.HealthProbe{
		Name: "covers",
		Check: func(context.Context) error {
			_, err := os.Stat(coverCache.CacheDir())
			return err
		},
	}

	routerCfg := http_controllers.RouterConfig{
		Database:      stores.DB,
		Authorizer:    auth.NewAuthorizer(stores.Sessions, stores.Devices, nil),
		RateLimiter:   rateLimiter,
		Devices:       stores.Devices,
		Audit:         stores.Audit,
		Sync:          engine,
		Library:       libraryService,
		States:        states,
		Annotations:   annotationService,
		Shelves:       shelfService,
		Tokens:        stores.Tokens,
		Books:         prosaClient,
		Covers:        coverCache,
		TaskDefaults:  taskDefaults,
		PublicHost:    cfg.HTTP.PublicHost,
		TokenDuration: cfg.Auth.TokenDuration,
		ProxyEnabled:  cfg.Proxy.Enabled,
		ProxyStoreURL: cfg.Proxy.StoreURL,
		ProxyImageURL: cfg.Proxy.ImageURL,
		HealthProbes:  []http_controllers.HealthProbe{coversProbe},
		Version:       version,
	}

	// Maintenance runs on the task queue; the scheduler only enqueues
	var taskClient *tasks.Client
	var maintenance *scheduler.MaintenanceScheduler
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(tasks.Maintenance{
			Tokens: stores.Tokens,
			Audit:  stores.Audit,
			Covers: coverCache,
		}.Queues()...)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		maintenance = scheduler.NewMaintenanceScheduler(taskClient, taskDefaults, maintenanceJobs(cfg)...)
		if err := maintenance.Start(taskCtx); err != nil {
			log.Fatalf("Failed to start maintenance scheduler: %v", err)
		}

		routerCfg.Tasks = taskClient
	} else {
		log.Printf("Task queue disabled: expired tokens, audit events and cached covers are not cleaned up")
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
