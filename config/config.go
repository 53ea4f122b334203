package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"sage-api"`
	Port                          int      `env:"PORT" env-default:"3004" validate:"gt=0"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"120"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`
	Version                       string   `env:"APP_VERSION" env-default:"dev"`

	// Tracing (empty endpoint = spans go to the log)
	TracingOTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:""`
	TracingOTLPProtocol string  `env:"OTEL_EXPORTER_OTLP_PROTOCOL" env-default:"grpc" validate:"oneof=grpc http"`
	TracingOTLPInsecure bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`
	TracingSampleRatio  float64 `env:"TRACING_SAMPLE_RATIO" env-default:"1" validate:"gte=0,lte=1"`

	// PostgreSQL (catalog + offers)
	DatabaseDriver              string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"sage"`
	DatabaseSSLMode             string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationForce      int           `env:"DB_MIGRATION_FORCE" env-default:"0"`

	// Redis (offer cache)
	RedisEnabled   bool   `env:"REDIS_ENABLED" env-default:"true"`
	RedisHost      string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort      int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword  string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB        int    `env:"REDIS_DB" env-default:"0"`
	RedisPoolSize  int    `env:"REDIS_POOL_SIZE" env-default:"10"`
	RedisDLQStream string `env:"REDIS_DLQ_STREAM" env-default:"sage:lookup:dlq"`

	// Kafka Consumer (lookup requests)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaLookupTopic     string   `env:"KAFKA_LOOKUP_TOPIC" env-default:"product-lookup-requests"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"sage-lookup-consumer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	KafkaHandlerRetries int           `env:"KAFKA_HANDLER_RETRIES" env-default:"3" validate:"min=0"`
	KafkaRetryBackoff   time.Duration `env:"KAFKA_RETRY_BACKOFF" env-default:"2s"`

	// Kafka Producer settings (lookup results)
	KafkaResultTopic  string `env:"KAFKA_RESULT_TOPIC" env-default:"product-lookup-results"`
	KafkaBatchSize    int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Oracle (LLM chat completions)
	OracleBaseURL        string        `env:"ORACLE_BASE_URL" env-default:"https://api.groq.com/openai/v1"`
	OracleAPIKey         string        `env:"ORACLE_API_KEY" env-default:""`
	OracleModel          string        `env:"ORACLE_MODEL" env-default:"llama-3.3-70b-versatile"`
	OracleMatchModel     string        `env:"ORACLE_MATCH_MODEL" env-default:"meta-llama/llama-4-scout-17b-16e-instruct"`
	OracleDiscoveryModel string        `env:"ORACLE_DISCOVERY_MODEL" env-default:"gpt-4o-mini"`
	OracleTimeout        time.Duration `env:"ORACLE_TIMEOUT" env-default:"60s"`

	// Crawler
	CrawlerBaseURL        string        `env:"CRAWLER_BASE_URL" env-default:"http://localhost:8090"`
	CrawlerMaxConcurrency int           `env:"CRAWLER_MAX_CONCURRENCY" env-default:"5" validate:"gt=0"`
	CrawlerAcquireTimeout time.Duration `env:"CRAWLER_ACQUIRE_TIMEOUT" env-default:"30s"`
	CrawlerTimeout        time.Duration `env:"CRAWLER_TIMEOUT" env-default:"90s"`

	// Translator (empty base url = passthrough)
	TranslatorBaseURL    string `env:"TRANSLATOR_BASE_URL" env-default:""`
	TranslatorSourceLang string `env:"TRANSLATOR_SOURCE_LANG" env-default:"bg"`
	TranslatorTargetLang string `env:"TRANSLATOR_TARGET_LANG" env-default:"en"`

	// Matching
	CategoryNameThreshold       float64 `env:"CATEGORY_NAME_THRESHOLD" env-default:"85"`
	CategoryPathThreshold       float64 `env:"CATEGORY_PATH_THRESHOLD" env-default:"70"`
	CategoryDefaultParentID     string  `env:"CATEGORY_DEFAULT_PARENT_ID" env-default:"cf8384df-f073-477f-b2fb-e5643eeb974e"`
	VariationAttributeThreshold float64 `env:"VARIATION_ATTRIBUTE_THRESHOLD" env-default:"0.95" validate:"gt=0,lte=1"`
	VariationSkuThreshold       float64 `env:"VARIATION_SKU_THRESHOLD" env-default:"98" validate:"gt=0,lte=100"`

	// Offers
	OfferRecencyWindow time.Duration `env:"OFFER_RECENCY_WINDOW" env-default:"36h"`
	PriceOutlierFactor float64       `env:"PRICE_OUTLIER_FACTOR" env-default:"10" validate:"gt=1"`
	LocalCurrency      string        `env:"LOCAL_CURRENCY" env-default:"BGN" validate:"len=3"`
	CrawlLockTTL       time.Duration `env:"CRAWL_LOCK_TTL" env-default:"5m"`
	CrawlLockWait      time.Duration `env:"CRAWL_LOCK_WAIT" env-default:"2m"`

	// Seeding
	CategorySeedFile string `env:"CATEGORY_SEED_FILE" env-default:""`
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (Config, error) {
	// a missing .env file is fine
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN builds the lib/pq connection string.
func (c Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUserName, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}
