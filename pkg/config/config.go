package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the dr-video indexer.
type Config struct {
	App      AppConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
	Identity IdentityConfig
	Indexer  IndexerConfig
	Search   SearchConfig
	Pipeline PipelineConfig
	Tracing  TracingConfig
	Ops      OpsConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"dr-video-indexer"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
}

type KafkaConfig struct {
	Brokers       []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	StorageTopic  string        `env:"KAFKA_STORAGE_EVENTS_TOPIC" envDefault:"drvideo.storage.events"`
	GroupID       string        `env:"KAFKA_GROUP_ID" envDefault:"dr-video-indexer"`
	MinBytes      int           `env:"KAFKA_MIN_BYTES" envDefault:"1"`
	MaxBytes      int           `env:"KAFKA_MAX_BYTES" envDefault:"10485760"`
	CommitTimeout time.Duration `env:"KAFKA_COMMIT_TIMEOUT" envDefault:"10s"`
}

type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"minio"`
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"dr-videos"`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
}

type IdentityConfig struct {
	TokenURL        string        `env:"IDENTITY_TOKEN_URL"`
	ClientID        string        `env:"IDENTITY_CLIENT_ID"`
	ClientSecret    string        `env:"IDENTITY_CLIENT_SECRET"`
	ManagementScope string        `env:"IDENTITY_MANAGEMENT_SCOPE" envDefault:"https://management.core.local/.default"`
	IndexScope      string        `env:"IDENTITY_INDEX_SCOPE" envDefault:"https://videoindex.core.local/.default"`
	RefreshMargin   time.Duration `env:"IDENTITY_REFRESH_MARGIN" envDefault:"2m"`
}

type IndexerConfig struct {
	APIURL    string        `env:"VIDEO_INDEXER_API_URL" envDefault:"https://api.videoindexer.ai"`
	AccountID string        `env:"VIDEO_INDEXER_ACCOUNT_ID"`
	Location  string        `env:"VIDEO_INDEXER_LOCATION" envDefault:"westus3"`
	Timeout   time.Duration `env:"VIDEO_INDEXER_HTTP_TIMEOUT" envDefault:"30s"`
}

type SearchConfig struct {
	Endpoint   string        `env:"SEARCH_ENDPOINT"`
	IndexName  string        `env:"SEARCH_INDEX_NAME" envDefault:"video-insights"`
	APIKey     string        `env:"SEARCH_API_KEY"`
	APIVersion string        `env:"SEARCH_API_VERSION" envDefault:"2023-11-01"`
	Timeout    time.Duration `env:"SEARCH_HTTP_TIMEOUT" envDefault:"30s"`
}

type PipelineConfig struct {
	UploadMode      string        `env:"PIPELINE_UPLOAD_MODE" envDefault:"url"`
	GrantTTL        time.Duration `env:"PIPELINE_GRANT_TTL" envDefault:"2h"`
	GrantClockSkew  time.Duration `env:"PIPELINE_GRANT_CLOCK_SKEW" envDefault:"5m"`
	PollInterval    time.Duration `env:"PIPELINE_POLL_INTERVAL" envDefault:"30s"`
	MaxWait         time.Duration `env:"PIPELINE_MAX_WAIT" envDefault:"45m"`
	TempDir         string        `env:"PIPELINE_TEMP_DIR" envDefault:"/tmp/dr-video"`
	VideoExtensions []string      `env:"PIPELINE_VIDEO_EXTENSIONS" envSeparator:"," envDefault:".mp4,.avi,.mov,.wmv,.mkv,.webm,.flv"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=drvideo"`
}

type OpsConfig struct {
	Addr string `env:"OPS_ADDR" envDefault:":9102"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
