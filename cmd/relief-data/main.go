package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iamyinka/reliefproj/internal/common/database"
	"github.com/iamyinka/reliefproj/internal/common/logger"
	commonmqtt "github.com/iamyinka/reliefproj/internal/common/mqtt"
	commonredis "github.com/iamyinka/reliefproj/internal/common/redis"
	"github.com/iamyinka/reliefproj/internal/config"
	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/events"
	httpapi "github.com/iamyinka/reliefproj/internal/http"
	"github.com/iamyinka/reliefproj/internal/notify"
	"github.com/iamyinka/reliefproj/internal/render"
	"github.com/iamyinka/reliefproj/internal/repository"
	"github.com/iamyinka/reliefproj/internal/service"
	"github.com/iamyinka/reliefproj/internal/store"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// repos groups the storage backends so Postgres and memory are interchangeable.
type repos struct {
	packages      repository.PackagesRepository
	applications  repository.ApplicationsRepository
	vouchers      repository.VouchersRepository
	notifications repository.NotificationsRepository
	stats         repository.StatsRepository
}

// memoryRepos backs every repository with one MemoryStore holding the sample catalog.
func memoryRepos(log *zap.Logger) repos {
	mem := repository.NewMemoryStore()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if outcomes, err := repository.SeedPackages(ctx, mem); err != nil {
		log.Warn("Failed to seed in-memory package catalog", zap.Error(err))
	} else {
		log.Info("Seeded in-memory package catalog", zap.Int("packages", len(outcomes)))
	}
	return repos{packages: mem, applications: mem, vouchers: mem, notifications: mem, stats: mem}
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(logger.Options{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		Service:          "relief-data",
		Version:          cfg.Log.Version,
		SampleInitial:    cfg.Log.SampleInitial,
		SampleThereafter: cfg.Log.SampleThereafter,
	})
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	loc := cfg.Voucher.Location()
	expiry := domain.ExpiryPolicy{
		GraceDays:       cfg.Voucher.GraceDays,
		MinValidityDays: cfg.Voucher.MinValidityDays,
		Location:        loc,
	}

	var db *sql.DB
	var r repos
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for relief-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory", zap.Error(err))
		}
	}
	if db != nil {
		if cfg.AutoMigrate {
			migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := repository.Migrate(migrateCtx, db); err != nil {
				cancel()
				log.Fatal("Failed to apply migrations", zap.Error(err))
			}
			cancel()
		}
		r = repos{
			packages:      repository.NewPostgresPackagesRepository(db),
			applications:  repository.NewPostgresApplicationsRepository(db),
			vouchers:      repository.NewPostgresVouchersRepository(db),
			notifications: repository.NewPostgresNotificationsRepository(db),
			stats:         repository.NewPostgresStatsRepository(db),
		}
	} else {
		// memory mode is for local runs only; nothing survives a restart
		r = memoryRepos(log)
	}

	// Redis backs the catalog cache and the event stream; both degrade to no-ops.
	var kv store.KV = store.NopKV{}
	var publishers events.Multi
	var feed httpapi.EventFeed
	redisClient := commonredis.NewRedisClient(&cfg.Redis)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := commonredis.Ping(pingCtx, redisClient); err != nil {
		log.Warn("Redis unavailable, cache and event stream disabled", zap.Error(err))
		_ = commonredis.Close(redisClient)
		redisClient = nil
	} else {
		kv = store.NewRedisKV(redisClient)
		if cfg.Events.Enabled {
			stream := events.NewStreamPublisher(redisClient, cfg.Events.Stream, cfg.Events.MaxLen)
			publishers = append(publishers, stream)
			feed = stream
		}
	}
	pingCancel()

	var mqttClient *commonmqtt.Client
	if cfg.MQTT.Enabled {
		if c, err := commonmqtt.NewClient(&cfg.MQTT.MQTTConfig, log); err == nil {
			mqttClient = c
			publishers = append(publishers, events.NewMQTTPublisher(c, cfg.MQTT.TopicPrefix))
			log.Info("MQTT scanner feed enabled", zap.String("broker", cfg.MQTT.Broker))
		} else {
			log.Warn("MQTT enabled but connection failed", zap.Error(err))
		}
	}

	var sender notify.Sender = notify.NewLogSender(log)
	if cfg.SMS.Enabled && cfg.SMS.GatewayURL != "" {
		sender = notify.NewHTTPSMSSender(cfg.SMS.GatewayURL, cfg.SMS.APIKey, cfg.SMS.SenderID, cfg.SMS.Timeout, log)
	}

	var publisher events.Publisher = events.Nop{}
	if len(publishers) > 0 {
		publisher = publishers
	}

	eligibility := service.NewEligibilityPolicy(r.applications, r.vouchers, cfg.Eligibility, expiry)
	inventory := service.NewInventoryService(r.packages, kv, cfg.Inventory, publisher, log)
	notifier := service.NewNotificationService(r.notifications, sender, log)
	vouchers := service.NewVoucherService(r.vouchers, r.applications, inventory, notifier, render.NewQRRenderer(), publisher, expiry, log)
	apps := service.NewApplicationService(service.ApplicationServiceDeps{
		Applications: r.applications,
		Vouchers:     r.vouchers,
		Eligibility:  eligibility,
		Inventory:    inventory,
		VoucherSvc:   vouchers,
		Notifier:     notifier,
		Publisher:    publisher,
		Codes:        domain.RandomCodes{},
		MaxAttempts:  cfg.Codes.MaxAttempts,
		Expiry:       expiry,
		Logger:       log,
	})
	stats := service.NewStatsService(r.stats, loc, log)
	reports := service.NewReportService(r.applications, r.vouchers, loc, log)

	router := httpapi.NewRouter(log)
	router.RegisterApplicationRoutes(httpapi.NewApplicationsHandler(apps, log))
	router.RegisterPickupRoutes(httpapi.NewPickupsHandler(vouchers, log))
	router.RegisterPackageRoutes(httpapi.NewPackagesHandler(inventory, log))
	router.RegisterReportRoutes(httpapi.NewReportsHandler(reports, stats, feed, loc, log))
	router.RegisterOpsRoutes()

	var scheduler *cron.Cron
	if cfg.Stats.Enabled {
		scheduler = cron.New(cron.WithLocation(loc))
		_, err := scheduler.AddFunc(cfg.Stats.CronSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if _, err := stats.Snapshot(ctx); err != nil {
				log.Error("Daily stats snapshot failed", zap.Error(err))
			}
		})
		if err != nil {
			log.Warn("Invalid stats cron spec, snapshot job disabled", zap.String("spec", cfg.Stats.CronSpec), zap.Error(err))
			scheduler = nil
		} else {
			scheduler.Start()
		}
	}

	srv := service.NewServer(cfg.HTTP.Addr, httpapi.Wrap(router, log), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = database.Close(db)
	}
}
