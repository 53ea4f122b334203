package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/sage/config"
	"github.com/Ramsey-B/sage/internal/repositories/alias"
	"github.com/Ramsey-B/sage/internal/repositories/category"
	"github.com/Ramsey-B/sage/internal/repositories/offer"
	"github.com/Ramsey-B/sage/internal/repositories/product"
	"github.com/Ramsey-B/sage/internal/repositories/website"
	"github.com/Ramsey-B/sage/pkg/cache"
	"github.com/Ramsey-B/sage/pkg/crawler"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/matching"
	"github.com/Ramsey-B/sage/pkg/middleware"
	"github.com/Ramsey-B/sage/pkg/oracle"
	"github.com/Ramsey-B/sage/pkg/pricing"
	"github.com/Ramsey-B/sage/pkg/processor"
	"github.com/Ramsey-B/sage/pkg/redis"
	"github.com/Ramsey-B/sage/pkg/resolver"
	categoryroutes "github.com/Ramsey-B/sage/pkg/routes/category"
	"github.com/Ramsey-B/sage/pkg/routes/deadletter"
	"github.com/Ramsey-B/sage/pkg/routes/health"
	lookuproutes "github.com/Ramsey-B/sage/pkg/routes/lookup"
	"github.com/Ramsey-B/sage/pkg/seed"
	"github.com/Ramsey-B/sage/pkg/startup"
	"github.com/Ramsey-B/sage/pkg/translator"
)

// app holds the process-wide dependencies. Fields are filled in by the
// startup dependencies in the order startup runs them.
type app struct {
	cfg    config.Config
	logger ectologger.Logger
	health *health.Checker

	sqlDB    *sqlx.DB
	db       database.DB
	redis    *redis.Client
	dlq      *redis.DeadLetterQueue
	producer *kafka.Producer
	emitter  *events.Emitter
	resolver *resolver.Resolver
	consumer *kafka.Consumer
	echo     *echo.Echo
}

func newApp(cfg config.Config, logger ectologger.Logger) *app {
	return &app{
		cfg:    cfg,
		logger: logger,
		health: health.NewChecker(cfg.Version),
	}
}

func (a *app) register(s *startup.Startup) {
	s.AddDependency(&startup.Dependency{Name: "database", StartFunc: a.startDatabase, StopFunc: a.stopDatabase})
	s.AddDependency(&startup.Dependency{Name: "redis", StartFunc: a.startRedis, StopFunc: a.stopRedis})
	s.AddDependency(&startup.Dependency{Name: "seed", Requires: []string{"database"}, StartFunc: a.seedCategories})
	s.AddDependency(&startup.Dependency{Name: "producer", StartFunc: a.startProducer, StopFunc: a.stopProducer})
	s.AddDependency(&startup.Dependency{Name: "resolver", Requires: []string{"database", "redis"}, StartFunc: a.buildResolver})
	s.AddDependency(&startup.Dependency{Name: "server", Requires: []string{"resolver", "producer"}, StartFunc: a.startServer, StopFunc: a.stopServer})
	s.AddDependency(&startup.Dependency{Name: "consumer", Requires: []string{"resolver", "producer"}, StartFunc: a.startConsumer, StopFunc: a.stopConsumer})
}

func (a *app) startDatabase(ctx context.Context) error {
	sqlDB, err := sqlx.ConnectContext(ctx, a.cfg.DatabaseDriver, a.cfg.DatabaseDSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB.SetMaxOpenConns(a.cfg.DatabaseMaxOpenConns)
	sqlDB.SetMaxIdleConns(a.cfg.DatabaseMaxIdleConns)
	sqlDB.SetConnMaxLifetime(a.cfg.DatabaseConnMaxLifetime)

	migrations := database.NewMigrationService(a.logger, database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
		Force:               a.cfg.DatabaseMigrationForce,
	})
	if err := migrations.Migrate(sqlDB.DB, a.cfg.DatabaseName); err != nil {
		_ = sqlDB.Close()
		return err
	}

	a.sqlDB = sqlDB
	a.db = database.NewDatabaseInstance(sqlDB, a.logger)
	a.health.AddCheck("database", a.db.PingContext)
	return nil
}

func (a *app) stopDatabase(context.Context) error {
	if a.sqlDB == nil {
		return nil
	}
	return a.sqlDB.Close()
}

func (a *app) startRedis(ctx context.Context) error {
	if !a.cfg.RedisEnabled {
		a.logger.Info("Redis disabled, offers are read from postgres only")
		return nil
	}
	client, err := redis.NewClient(ctx, redis.Config{
		Host:     a.cfg.RedisHost,
		Port:     a.cfg.RedisPort,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
		PoolSize: a.cfg.RedisPoolSize,
	}, a.logger)
	if err != nil {
		return err
	}
	a.redis = client
	a.dlq = redis.NewDeadLetterQueue(client, a.cfg.RedisDLQStream, a.logger)
	a.health.AddOptionalCheck("redis", client.Ping)
	return nil
}

func (a *app) stopRedis(context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

func (a *app) seedCategories(ctx context.Context) error {
	if a.cfg.CategorySeedFile == "" {
		return nil
	}
	_, err := seed.NewSeeder(category.NewRepository(a.db, a.logger), a.logger).SeedFile(ctx, a.cfg.CategorySeedFile)
	return err
}

func (a *app) startProducer(context.Context) error {
	a.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      a.cfg.KafkaBrokers,
		Topic:        a.cfg.KafkaResultTopic,
		BatchSize:    a.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: a.cfg.KafkaRequiredAcks,
		Compression:  a.cfg.KafkaCompression,
	}, a.logger)
	a.emitter = events.NewEmitter(a.producer, a.logger)
	return nil
}

func (a *app) stopProducer(context.Context) error {
	if a.producer == nil {
		return nil
	}
	return a.producer.Close()
}

func (a *app) buildResolver(context.Context) error {
	oracleClient := oracle.NewClient(a.logger, oracle.Config{
		BaseURL:        a.cfg.OracleBaseURL,
		APIKey:         a.cfg.OracleAPIKey,
		Model:          a.cfg.OracleModel,
		MatchModel:     a.cfg.OracleMatchModel,
		DiscoveryModel: a.cfg.OracleDiscoveryModel,
		Timeout:        a.cfg.OracleTimeout,
	})
	crawlerClient := crawler.NewClient(a.logger, crawler.Config{
		BaseURL: a.cfg.CrawlerBaseURL,
		Timeout: a.cfg.CrawlerTimeout,
	}, crawler.NewGate(a.cfg.CrawlerMaxConcurrency, a.cfg.CrawlerAcquireTimeout))

	matchCfg := matching.Config{
		CategoryNameThreshold:       a.cfg.CategoryNameThreshold,
		CategoryPathThreshold:       a.cfg.CategoryPathThreshold,
		VariationAttributeThreshold: a.cfg.VariationAttributeThreshold,
		VariationSkuThreshold:       a.cfg.VariationSkuThreshold,
	}

	deps := resolver.Dependencies{
		Categories: category.NewRepository(a.db, a.logger),
		Products:   product.NewRepository(a.db, a.logger),
		Websites:   website.NewRepository(a.db, a.logger),
		Offers:     offer.NewRepository(a.db, a.logger),
		Aliases:    alias.NewRepository(a.db, a.logger),

		Oracle:  oracleClient,
		Crawler: crawlerClient,
		Translator: translator.New(a.logger, translator.Config{
			BaseURL:    a.cfg.TranslatorBaseURL,
			SourceLang: a.cfg.TranslatorSourceLang,
			TargetLang: a.cfg.TranslatorTargetLang,
		}),

		CategoryMatcher: matching.NewCategoryMatcher(matchCfg),
		Variations:      matching.NewVariationResolver(a.logger, matchCfg, oracleClient),
		Selector:        pricing.NewSelector(a.logger, oracleClient, pricing.NewNormalizer(a.logger, a.cfg.PriceOutlierFactor), a.cfg.LocalCurrency),
	}
	// left nil without redis so the resolver sees no cache rather than a typed nil
	if a.redis != nil {
		deps.Cache = cache.NewOfferCache(a.redis, a.cfg.OfferRecencyWindow, a.logger)
		deps.Locker = redis.NewLocker(a.redis, "sage:")
	}

	a.resolver = resolver.New(a.logger, resolver.Config{
		DefaultParentID: a.cfg.CategoryDefaultParentID,
		RecencyWindow:   a.cfg.OfferRecencyWindow,
		CrawlLockTTL:    a.cfg.CrawlLockTTL,
		CrawlLockWait:   a.cfg.CrawlLockWait,
	}, deps)
	return nil
}

func (a *app) startServer(context.Context) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{AllowOrigins: a.cfg.AllowOrigins}))
	e.Use(otelecho.Middleware(a.cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.logger))

	a.health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	lookuproutes.NewHandler(a.resolver, a.emitter, a.logger).Register(api)
	categoryroutes.NewHandler(a.resolver).Register(api.Group("/categories"))
	if a.dlq != nil {
		deadletter.NewHandler(a.dlq, a.logger).Register(api.Group("/dead-letters"))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		ReadTimeout:       time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}
	a.echo = e

	go func() {
		a.logger.Infof("HTTP server listening on %s", server.Addr)
		if err := e.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server failed")
		}
	}()
	return nil
}

func (a *app) stopServer(ctx context.Context) error {
	if a.echo == nil {
		return nil
	}
	return a.echo.Shutdown(ctx)
}

func (a *app) startConsumer(ctx context.Context) error {
	if !a.cfg.KafkaConsumerEnabled {
		a.logger.Info("Kafka consumer disabled")
		return nil
	}

	var dlq processor.DeadLetters
	if a.dlq != nil {
		dlq = a.dlq
	}
	p := processor.NewProcessor(a.logger, a.resolver, a.emitter, dlq)

	a.consumer = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:        a.cfg.KafkaBrokers,
		Topic:          a.cfg.KafkaLookupTopic,
		ConsumerGroup:  a.cfg.KafkaConsumerGroup,
		HandlerRetries: a.cfg.KafkaHandlerRetries,
		RetryBackoff:   a.cfg.KafkaRetryBackoff,
	}, a.logger, p.ProcessMessage)
	// the consume loop outlives the startup context
	return a.consumer.Start(context.WithoutCancel(ctx))
}

func (a *app) stopConsumer(context.Context) error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Stop()
}
