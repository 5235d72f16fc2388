package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pateepk/AgileSite-sub083/internal/api"
	"github.com/pateepk/AgileSite-sub083/internal/auth"
	"github.com/pateepk/AgileSite-sub083/internal/config"
	"github.com/pateepk/AgileSite-sub083/internal/domain"
	"github.com/pateepk/AgileSite-sub083/internal/eventlog"
	"github.com/pateepk/AgileSite-sub083/internal/ingest"
	persistence "github.com/pateepk/AgileSite-sub083/internal/persistence/postgres"
	"github.com/pateepk/AgileSite-sub083/internal/publish"
	"github.com/pateepk/AgileSite-sub083/internal/queue"
	"github.com/pateepk/AgileSite-sub083/internal/settings"
	httptransport "github.com/pateepk/AgileSite-sub083/internal/transport/http"
)

const onlineMarketingSettingKey = "CMSEnableOnlineMarketing"

func main() {
	cfg := config.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	log := logrus.WithField("service", "activity-log")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL)
	if err != nil {
		log.WithError(err).Fatal("invalid postgres url")
	}
	if cfg.PostgresMaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.PostgresMaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	cmsSettings := settings.New(log.WithField("component", "settings"),
		settings.NewPostgresStore(pool, settings.DefaultTable),
		settings.EnvStore{},
		settings.MapStore{ingest.IntervalSettingKey: strconv.FormatInt(cfg.LogInterval.Milliseconds(), 10)},
	)

	events := eventlog.Multi(
		eventlog.NewLogrus(log.WithField("component", "eventlog")),
		persistence.NewEventLog(pool, 2*time.Second, log.WithField("component", "eventlog")),
	)

	// One queue shared by the producer facade and the persistor.
	activityQueue := queue.New()
	repo := domain.NewRepository(activityQueue)

	interceptors := ingest.Interceptors{
		ingest.SettingGate{Settings: cmsSettings, Key: onlineMarketingSettingKey},
	}
	var publisher *publish.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := publish.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()
		publisher = publish.NewPublisher(producer, cfg.ActivityTopic, log.WithField("component", "activity-publisher"))
		interceptors = append(interceptors, publisher)
	}

	persistor := ingest.NewPersistor(activityQueue, persistence.NewBulkInserter(pool),
		ingest.WithInterceptor(interceptors),
		ingest.WithPersistorLogger(log.WithField("component", "activity-persistor")),
	)
	worker := ingest.NewWorker(persistor,
		ingest.WithSettings(cmsSettings),
		ingest.WithEventLogger(events),
		ingest.WithQueueDepth(activityQueue.Len),
		ingest.WithDrainOnStop(cfg.FlushOnShutdown, cfg.ShutdownTimeout),
		ingest.WithWorkerLogger(log.WithField("component", "activity-worker")),
	)

	go worker.Start(ctx)

	handler := api.NewHandler(repo, log.WithField("component", "api"))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	requestLogger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("request")
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(requestLogger(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithFields(logrus.Fields{"address": cfg.HTTPAddress, "interval": worker.Interval()}).Info("activity log service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-shutdownCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting producers before the final drain.
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}

	worker.Stop()
	worker.Wait()
	if publisher != nil {
		publisher.Wait()
	}
}
