package config

import (
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"clover-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"clover"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseReconnectRetryCount   int           `env:"DB_RECONNECT_RETRY_COUNT" env-default:"3"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis (worker coordination locks)
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Kafka Consumer (menu upload notifications - ingestion trigger)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaUploadsTopic    string   `env:"KAFKA_UPLOADS_TOPIC" env-default:"menu-uploads"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"clover-consumer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Kafka Producer settings
	KafkaEventsTopic  string `env:"KAFKA_EVENTS_TOPIC" env-default:"venue-events"`
	KafkaAuditTopic   string `env:"KAFKA_AUDIT_TOPIC" env-default:"audit-log"`
	KafkaBatchSize    int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Menu parser (remote OCR/extraction service)
	ParserBaseURL        string        `env:"PARSER_BASE_URL" env-default:"http://localhost:8090"`
	ParserTimeout        time.Duration `env:"PARSER_TIMEOUT" env-default:"60s"`
	ParserMinConfidence  float64       `env:"PARSER_MIN_CONFIDENCE" env-default:"0.5"`

	// File storage (uploaded menu images)
	FileStoreBaseURL string        `env:"FILE_STORE_BASE_URL" env-default:"http://localhost:8091"`
	FileStoreTimeout time.Duration `env:"FILE_STORE_TIMEOUT" env-default:"30s"`

	// Ingest worker
	IngestWorkerEnabled   bool          `env:"INGEST_WORKER_ENABLED" env-default:"true"`
	IngestPollInterval    time.Duration `env:"INGEST_POLL_INTERVAL" env-default:"15s"`
	IngestBatchSize       int           `env:"INGEST_BATCH_SIZE" env-default:"10"`
	IngestMaxAttempts     int           `env:"INGEST_MAX_ATTEMPTS" env-default:"3"`
	IngestRetryBaseDelay  time.Duration `env:"INGEST_RETRY_BASE_DELAY" env-default:"30s"`
	IngestLockTTL         time.Duration `env:"INGEST_LOCK_TTL" env-default:"60s"`

	// Approval expiry sweeper
	ApprovalSweepEnabled  bool          `env:"APPROVAL_SWEEP_ENABLED" env-default:"true"`
	ApprovalSweepInterval time.Duration `env:"APPROVAL_SWEEP_INTERVAL" env-default:"60s"`
	ApprovalTTL           time.Duration `env:"APPROVAL_TTL" env-default:"336h"` // 14 days

	// Tracing
	OtlpEndpoint string `env:"OTLP_ENDPOINT" env-default:""`
}

// Load reads the configuration from the environment, layering any local
// .env file underneath
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
