package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/wyfcoding/wealthservice/internal/catalog/application"
	catalogdomaintypes "github.com/wyfcoding/wealthservice/internal/catalog/domain"
	cataloginfra "github.com/wyfcoding/wealthservice/internal/catalog/infrastructure"
	cataloghttp "github.com/wyfcoding/wealthservice/internal/catalog/interfaces/http"
	investapp "github.com/wyfcoding/wealthservice/internal/investment/application"
	investdomain "github.com/wyfcoding/wealthservice/internal/investment/domain"
	investinfra "github.com/wyfcoding/wealthservice/internal/investment/infrastructure"
	investhttp "github.com/wyfcoding/wealthservice/internal/investment/interfaces/http"
	kycapp "github.com/wyfcoding/wealthservice/internal/kyc/application"
	kycdomain "github.com/wyfcoding/wealthservice/internal/kyc/domain"
	kycinfra "github.com/wyfcoding/wealthservice/internal/kyc/infrastructure"
	kychttp "github.com/wyfcoding/wealthservice/internal/kyc/interfaces/http"
	membershipapp "github.com/wyfcoding/wealthservice/internal/membership/application"
	membershipdomain "github.com/wyfcoding/wealthservice/internal/membership/domain"
	membershipinfra "github.com/wyfcoding/wealthservice/internal/membership/infrastructure"
	membershiphttp "github.com/wyfcoding/wealthservice/internal/membership/interfaces/http"
	notifyapp "github.com/wyfcoding/wealthservice/internal/notification/application"
	notifydomain "github.com/wyfcoding/wealthservice/internal/notification/domain"
	notifyinfra "github.com/wyfcoding/wealthservice/internal/notification/infrastructure"
	notifyhttp "github.com/wyfcoding/wealthservice/internal/notification/interfaces/http"
	"github.com/wyfcoding/wealthservice/pkg/cache"
	"github.com/wyfcoding/wealthservice/pkg/config"
	"github.com/wyfcoding/wealthservice/pkg/db"
	"github.com/wyfcoding/wealthservice/pkg/logger"
	"github.com/wyfcoding/wealthservice/pkg/metrics"
	"github.com/wyfcoding/wealthservice/pkg/middleware"
	"github.com/wyfcoding/wealthservice/pkg/mq"
	"github.com/wyfcoding/wealthservice/pkg/ratelimit"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/wealthservice/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	log := logger.Get()
	ctx := context.Background()

	// 3. Database
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "connect database failed", "error", err)
	}

	if err := database.AutoMigrate(
		&kycdomain.VerificationRecord{},
		&kycdomain.Document{},
		&catalogdomaintypes.ServicePolicy{},
		&catalogdomaintypes.PricingPackage{},
		&membershipdomain.ServiceSubscription{},
		&membershipdomain.Payment{},
		&membershipdomain.Address{},
		&membershipdomain.ServiceUsageLink{},
		&investdomain.InterestRateConfig{},
		&investdomain.InvestmentRequest{},
		&investdomain.FundTransaction{},
		&investdomain.ReturnRequest{},
		&investdomain.CustomerInvestmentSummary{},
		&notifydomain.Notification{},
	); err != nil {
		logger.Fatal(ctx, "migrate database failed", "error", err)
	}

	if err := cataloginfra.Seed(ctx, database.DB); err != nil {
		logger.Fatal(ctx, "seed catalog failed", "error", err)
	}
	if err := investinfra.Seed(ctx, database.DB); err != nil {
		logger.Fatal(ctx, "seed rate tiers failed", "error", err)
	}

	// 4. Redis / Kafka，缺失时对应能力降级
	var redisCache *cache.RedisCache
	if cfg.Redis.Host != "" {
		redisCache, err = cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Warn(ctx, "redis unavailable, running without cache", "error", err)
			redisCache = nil
		}
	}

	var producer *mq.KafkaProducer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			GroupID:      cfg.Kafka.GroupID,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			logger.Warn(ctx, "kafka unavailable, running without events", "error", err)
			producer = nil
		}
	}

	// 5. Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.ServiceName)
		if err := m.Register(); err != nil {
			logger.Fatal(ctx, "register metrics failed", "error", err)
		}
		go func() {
			if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				logger.Error(ctx, "metrics server stopped", "error", err)
			}
		}()
	}

	// 6. Infrastructure
	verificationRepo := kycinfra.NewGormVerificationRepository(database.DB)
	documentRepo := kycinfra.NewGormDocumentRepository(database.DB)

	catalogRepo := cataloginfra.NewGormCatalogRepository(database.DB)
	var catalogRepoPort catalogdomaintypes.CatalogRepository = catalogRepo
	if redisCache != nil {
		catalogRepoPort = cataloginfra.NewCachedCatalogRepository(catalogRepo, redisCache)
	}

	subscriptionRepo := membershipinfra.NewGormSubscriptionRepository(database.DB)
	paymentRepo := membershipinfra.NewGormPaymentRepository(database.DB)
	addressRepo := membershipinfra.NewGormAddressRepository(database.DB)
	paymentProvider := membershipinfra.NewMockPaymentProvider(
		config.GetEnv("WEALTH_PAYMENT_BASE_URL", "https://pay.wealthservice.local"))

	var publisher membershipdomain.EventPublisher
	if producer != nil {
		publisher = membershipinfra.NewKafkaEventPublisher(producer, cfg.Kafka.EventTopic)
	}

	rateConfigRepo := investinfra.NewGormRateConfigRepository(database.DB)
	var rateConfigPort investdomain.RateConfigRepository = rateConfigRepo
	if redisCache != nil {
		rateConfigPort = investinfra.NewCachedRateConfigRepository(rateConfigRepo, redisCache)
	}
	requestRepo := investinfra.NewGormRequestRepository(database.DB)
	ledgerRepo := investinfra.NewGormLedgerRepository(database.DB)
	returnRepo := investinfra.NewGormReturnRepository(database.DB)
	summaryRepo := investinfra.NewGormSummaryRepository(database.DB)

	notificationRepo := notifyinfra.NewGormNotificationRepository(database.DB)
	var sender notifydomain.Sender
	switch cfg.Notification.Sender {
	case "smtp":
		sender = notifyinfra.NewSMTPSender(
			cfg.Notification.SMTPHost,
			cfg.Notification.SMTPPort,
			cfg.Notification.SMTPUsername,
			cfg.Notification.SMTPPassword,
			cfg.Notification.From,
		)
	case "kafka":
		if producer != nil {
			sender = notifyinfra.NewKafkaNotificationSender(producer, cfg.Kafka.NotificationTopic)
		} else {
			logger.Warn(ctx, "kafka sender configured but kafka unavailable, using mock sender")
			sender = notifyinfra.NewMockSender()
		}
	default:
		sender = notifyinfra.NewMockSender()
	}

	// 7. Application
	notificationSvc := notifyapp.NewService(notificationRepo, sender, log)
	kycSvc := kycapp.NewService(verificationRepo, documentRepo, log)
	catalogSvc := catalogapp.NewService(catalogRepoPort, log)
	membershipSvc := membershipapp.NewService(
		subscriptionRepo, paymentRepo, addressRepo,
		kycSvc, catalogSvc,
		paymentProvider, publisher, notificationSvc, m, log,
	)
	investmentSvc := investapp.NewService(
		rateConfigPort, requestRepo, ledgerRepo, returnRepo, summaryRepo,
		subscriptionRepo, notificationSvc, m, log,
	)

	// 8. HTTP
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	if cfg.RateLimit.Enabled && redisCache != nil {
		limiter := ratelimit.NewRedisRateLimiter(redisCache.Client())
		router.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})

	membershiphttp.NewMembershipHandler(membershipSvc).RegisterRoutes(router)
	investhttp.NewInvestmentHandler(investmentSvc).RegisterRoutes(router)
	kychttp.NewKYCHandler(kycSvc).RegisterRoutes(router)
	cataloghttp.NewCatalogHandler(catalogSvc).RegisterRoutes(router)
	notifyhttp.NewNotificationHandler(notificationSvc).RegisterRoutes(router)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 9. 后台到期巡检
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	go runExpirySweep(sweepCtx, membershipSvc)

	// 10. Start
	go func() {
		logger.Info(ctx, "starting HTTP server", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server failed", "error", err)
		}
	}()

	// 11. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down server")

	cancelSweep()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP shutdown failed", "error", err)
	}
	if producer != nil {
		_ = producer.Close()
	}
	if redisCache != nil {
		_ = redisCache.Close()
	}
	_ = database.Close()
	logger.Info(ctx, "server exiting")
}

// runExpirySweep 周期性停用已过期订阅
// 巡检本身幂等，多实例并发执行也只会有一个实例真正停用某行。
func runExpirySweep(ctx context.Context, svc *membershipapp.Service) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := svc.ExpirySweep(ctx, time.Now())
			if err != nil {
				logger.Error(ctx, "expiry sweep failed", "error", err)
				continue
			}
			if result.ExpiredCount > 0 {
				logger.Info(ctx, "expiry sweep completed", "expired", result.ExpiredCount)
			}
		}
	}
}
