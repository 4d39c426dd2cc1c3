package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/afonsoingles/helper-scheduler/config"
	"github.com/afonsoingles/helper-scheduler/internal/catalogue"
	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/afonsoingles/helper-scheduler/internal/health"
	"github.com/afonsoingles/helper-scheduler/internal/helperkit"
	_ "github.com/afonsoingles/helper-scheduler/internal/helperkit/helpers"
	"github.com/afonsoingles/helper-scheduler/internal/infrastructure/postgres"
	ctxlog "github.com/afonsoingles/helper-scheduler/internal/log"
	"github.com/afonsoingles/helper-scheduler/internal/metrics"
	"github.com/afonsoingles/helper-scheduler/internal/mutation"
	"github.com/afonsoingles/helper-scheduler/internal/notify"
	"github.com/afonsoingles/helper-scheduler/internal/planner"
	"github.com/afonsoingles/helper-scheduler/internal/queue"
	"github.com/afonsoingles/helper-scheduler/internal/scheduler"
	"github.com/afonsoingles/helper-scheduler/internal/store"
	httptransport "github.com/afonsoingles/helper-scheduler/internal/transport/http"
	"github.com/afonsoingles/helper-scheduler/internal/transport/http/handler"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()
	logger.Info("postgres connected")

	redisClient, err := store.NewClient(cfg.RedisURL)
	if err != nil {
		stop()
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	redisStore := store.NewRedisStore(redisClient)
	logger.Info("scheduling store connected")

	metrics.Register()
	metrics.ProcessStartTime.Set(float64(time.Now().Unix()))
	checker := health.NewChecker(pool, redisStore, logger, prometheus.DefaultRegisterer)

	userDirectory := postgres.NewUserDirectory(pool)
	historyRepo := postgres.NewHistoryRepository(pool)
	cat := catalogue.New(redisStore, logger)
	execQueue := queue.New(redisStore)

	if err := registerCatalogue(ctx, cat); err != nil {
		stop()
		log.Fatalf("catalogue: %v", err)
	}

	notifier := notify.New(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, cfg.OperatorEmail, logger)
	recorder := scheduler.NewHistoryRecorder(cat, historyRepo)

	onFail := func(ctx context.Context, job domain.Job, cause error) {
		if err := notifier.NotifyHelperFailure(ctx, job.HelperID, job.ExecutionID, cause); err != nil {
			logger.ErrorContext(ctx, "notify helper failure", "helper_id", job.HelperID, "execution_id", job.ExecutionID, "error", err)
		}
	}

	executor := scheduler.NewExecutor(execQueue, logger, onFail)
	executor.SetRecorder(recorder)

	dispatcher := scheduler.NewDispatcher(execQueue, userDirectory, executor, logger)
	dispatcher.SetRecorder(recorder)
	dispatcher.SetTickInterval(time.Duration(cfg.DispatchTickSec) * time.Second)

	plan := planner.New(cat, execQueue, userDirectory, logger)

	mutationSvc := mutation.New(cat, userDirectory, logger)
	helperHandler := handler.NewHelperHandler(mutationSvc, cat, userDirectory, logger)
	router := httptransport.NewRouter(logger, helperHandler, []byte(cfg.JWTSecret))

	if err := plan.BuildInitial(ctx); err != nil {
		stop()
		log.Fatalf("planner: build initial queue: %v", err)
	}
	logger.Info("initial queue built")

	go dispatcher.Start(ctx)

	go func() {
		for userID := range mutationSvc.ReplanRequests() {
			if err := plan.ReplanUser(ctx, userID); err != nil {
				logger.ErrorContext(ctx, "replan failed", "user_id", userID, "error", err)
			}
		}
	}()

	go runExpansionLoop(ctx, cfg, plan, cat, logger)

	apiSrv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		logger.Info("api server started", "port", cfg.Port)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server", "error", err)
		}
	}()

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	dispatcher.Wait()

	logger.Info("scheduler shut down")
}

// registerCatalogue clears any catalogue entries a previous deploy left
// behind, then registers every compile-time helper fresh. Keeping Clear
// ahead of Register means a helper removed from this build's binary never
// lingers as an orphaned catalogue entry.
func registerCatalogue(ctx context.Context, cat *catalogue.Catalogue) error {
	if err := cat.Clear(ctx); err != nil {
		return err
	}
	for _, reg := range helperkit.All() {
		if err := cat.Register(ctx, reg.Definition); err != nil {
			return err
		}
	}
	return nil
}

// runExpansionLoop extends the Execution Queue's coverage and reclaims
// retired history on a fixed cadence, until ctx is cancelled.
func runExpansionLoop(ctx context.Context, cfg *config.Config, plan *planner.Planner, cat *catalogue.Catalogue, logger *slog.Logger) {
	ticker := time.NewTicker(time.Duration(cfg.ExpansionIntervalMin) * time.Minute)
	defer ticker.Stop()

	retention := time.Duration(cfg.HistoryRetentionHours) * time.Hour

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := plan.ExpandWindow(ctx); err != nil {
				logger.ErrorContext(ctx, "expand window failed", "error", err)
			}
			if removed, err := cat.GC(ctx, time.Now(), retention); err != nil {
				logger.ErrorContext(ctx, "catalogue gc failed", "error", err)
			} else if removed > 0 {
				logger.InfoContext(ctx, "catalogue gc", "removed", removed)
			}
		}
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
