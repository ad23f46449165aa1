package config

import "time"

// Config holds every recognized gateway setting. Fields are populated from
// a YAML file first; a fixed set of them is then overridden by the
// environment variables internal/config/loader.go's applyEnvOverrides
// recognizes. The other fields have no environment override.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	AWS       AWSConfig       `yaml:"aws"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Files     FilesConfig     `yaml:"files"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Retry     RetryConfig     `yaml:"retry"`
	MaxTokens MaxTokensConfig `yaml:"max_tokens"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// AuthConfig carries the single bearer token required on every /v1/*
// endpoint. There is no multi-tenant key store.
type AuthConfig struct {
	ServerAPIKey string `yaml:"server_api_key"`
}

// AWSConfig carries the Bedrock credential group and region, resolved in
// priority order by internal/providerclient.ResolveCredentials.
type AWSConfig struct {
	Region                 string        `yaml:"region"`
	StaticKey              string        `yaml:"static_key"`
	StaticSecret           string        `yaml:"static_secret"`
	SessionToken           string        `yaml:"session_token"`
	ProfileName            string        `yaml:"profile_name"`
	AssumedRoleARN         string        `yaml:"assumed_role_arn"`
	AssumedRoleExternalID  string        `yaml:"assumed_role_external_id"`
	AssumedRoleSessionName string        `yaml:"assumed_role_session_name"`
	AssumedRoleDuration    time.Duration `yaml:"assumed_role_duration"`
	WebIdentityTokenFile   string        `yaml:"web_identity_token_file"`
	WebIdentityRoleARN     string        `yaml:"web_identity_role_arn"`
}

type OpenAIConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type FilesConfig struct {
	Bucket string `yaml:"bucket"`
}

type KnowledgeConfig struct {
	DirectRAGThreshold           float64               `yaml:"direct_rag_threshold"`
	ContextAugmentationThreshold float64               `yaml:"context_augmentation_threshold"`
	KnowledgeBases               []KnowledgeBaseConfig `yaml:"knowledge_bases"`
}

// KnowledgeBaseConfig names one Bedrock knowledge base the gateway is
// willing to query, since Bedrock Agent Runtime has no "list my knowledge
// bases" call the gateway can use directly; the registry is configured,
// not discovered.
type KnowledgeBaseConfig struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	WaitMinSeconds time.Duration `yaml:"wait_min_seconds"`
	WaitMaxSeconds time.Duration `yaml:"wait_max_seconds"`
}

// MaxTokensConfig holds the DEFAULT_MAX_TOKENS_* family defaults applied
// when a request omits max_tokens.
type MaxTokensConfig struct {
	Anthropic int `yaml:"anthropic"`
	Titan     int `yaml:"titan"`
	Pluggable int `yaml:"pluggable"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + itoa(d.Port) + "/" + d.Name + "?sslmode=disable"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	s := ""
	for i > 0 {
		s = string(rune('0'+i%10)) + s
		i /= 10
	}
	return s
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort int    `yaml:"metrics_port"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com",
			Timeout: 60 * time.Second,
		},
		Files: FilesConfig{
			Bucket: "chat-gateway-files",
		},
		Knowledge: KnowledgeConfig{
			DirectRAGThreshold:           0.7,
			ContextAugmentationThreshold: 0.4,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			WaitMinSeconds: 1 * time.Second,
			WaitMaxSeconds: 10 * time.Second,
		},
		MaxTokens: MaxTokensConfig{
			Anthropic: 1024,
			Titan:     1024,
			Pluggable: 512,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "gateway",
			User:            "gateway",
			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addresses: []string{"localhost:6379"},
			DB:        0,
			PoolSize:  50,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
	}
}
