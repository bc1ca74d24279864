package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/medinfo-api/pkg/logger"
)

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	Name         string        `mapstructure:"name"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_lifetime"`
	Migrate      bool          `mapstructure:"migrate"`
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Enabled      bool          `mapstructure:"enabled"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	EventChannel string        `mapstructure:"event_channel"`
}

type LLMConfig struct {
	Provider   string        `mapstructure:"provider"` // gemini or openai
	Model      string        `mapstructure:"model"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries uint64        `mapstructure:"max_retries"`
	// Consecutive failures before the breaker opens.
	BreakerThreshold uint32        `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

type OCRConfig struct {
	Engine   string        `mapstructure:"engine"` // tesseract or http
	Binary   string        `mapstructure:"binary"`
	Language string        `mapstructure:"language"`
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type TranslateConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PlacesConfig struct {
	OverpassURL   string        `mapstructure:"overpass_url"`
	NominatimURL  string        `mapstructure:"nominatim_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	DefaultRadius int           `mapstructure:"default_radius"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

type OAuthConfig struct {
	GoogleClientID    string `mapstructure:"google_client_id"`
	GoogleTokenURL    string `mapstructure:"google_tokeninfo_url"`
	FacebookAppID     string `mapstructure:"facebook_app_id"`
	FacebookAppSecret string `mapstructure:"facebook_app_secret"`
	FacebookGraphURL  string `mapstructure:"facebook_graph_url"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type AuthConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type MedicineConfig struct {
	CoalesceGeneration bool          `mapstructure:"coalesce_generation"`
	NormalizerCacheTTL time.Duration `mapstructure:"normalizer_cache_ttl"`
}

type PrescriptionConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	LLM          LLMConfig          `mapstructure:"llm"`
	OCR          OCRConfig          `mapstructure:"ocr"`
	Translate    TranslateConfig    `mapstructure:"translate"`
	Places       PlacesConfig       `mapstructure:"places"`
	OAuth        OAuthConfig        `mapstructure:"oauth"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Medicine     MedicineConfig     `mapstructure:"medicine"`
	Prescription PrescriptionConfig `mapstructure:"prescription"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Logging      logger.Config      `mapstructure:"logging"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// Secrets are read from MEDINFO_* environment variables after the config
// file and override it when set.
type Secrets struct {
	DatabasePassword  string `envconfig:"DATABASE_PASSWORD"`
	RedisURL          string `envconfig:"REDIS_URL"`
	GeminiAPIKey      string `envconfig:"GEMINI_API_KEY"`
	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY"`
	TranslateAPIKey   string `envconfig:"TRANSLATE_API_KEY"`
	JWTSecret         string `envconfig:"JWT_SECRET"`
	GoogleClientID    string `envconfig:"GOOGLE_CLIENT_ID"`
	FacebookAppSecret string `envconfig:"FACEBOOK_APP_SECRET"`
}

const envPrefix = "MEDINFO"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.request_timeout", 90*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.max_upload_bytes", 10<<20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "medinfo")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.cache_ttl", 24*time.Hour)
	v.SetDefault("redis.event_channel", "medinfo.events")

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.breaker_threshold", 5)
	v.SetDefault("llm.breaker_cooldown", 30*time.Second)

	v.SetDefault("ocr.engine", "tesseract")
	v.SetDefault("ocr.binary", "tesseract")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.timeout", 60*time.Second)

	v.SetDefault("translate.url", "https://libretranslate.com/translate")
	v.SetDefault("translate.timeout", 15*time.Second)

	v.SetDefault("places.overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("places.nominatim_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("places.user_agent", "medinfo-api/1.0")
	v.SetDefault("places.default_radius", 3000)
	v.SetDefault("places.timeout", 20*time.Second)
	v.SetDefault("places.cache_ttl", time.Hour)

	v.SetDefault("oauth.google_tokeninfo_url", "https://oauth2.googleapis.com/tokeninfo")
	v.SetDefault("oauth.facebook_graph_url", "https://graph.facebook.com")

	v.SetDefault("jwt.issuer", "medinfo-api")
	v.SetDefault("jwt.expiry_hours", 24)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("medicine.coalesce_generation", true)
	v.SetDefault("medicine.normalizer_cache_ttl", 10*time.Minute)
	v.SetDefault("prescription.concurrency", 4)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_second", 5)
	v.SetDefault("ratelimit.burst", 20)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "medinfo")
}

// Load reads configuration from file (explicit path, or config.yaml in the
// usual search paths), environment variables and secrets.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var secrets Secrets
	if err := envconfig.Process(envPrefix, &secrets); err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}
	cfg.applySecrets(secrets)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applySecrets(s Secrets) {
	override := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}
	override(&c.Database.Password, s.DatabasePassword)
	override(&c.Redis.URL, s.RedisURL)
	override(&c.Translate.APIKey, s.TranslateAPIKey)
	override(&c.JWT.Secret, s.JWTSecret)
	override(&c.OAuth.GoogleClientID, s.GoogleClientID)
	override(&c.OAuth.FacebookAppSecret, s.FacebookAppSecret)
	switch c.LLM.Provider {
	case "gemini":
		override(&c.LLM.APIKey, s.GeminiAPIKey)
	case "openai":
		override(&c.LLM.APIKey, s.OpenAIAPIKey)
	}
}

// Validate checks settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.OCR.Engine {
	case "tesseract":
	case "http":
		if c.OCR.URL == "" {
			return fmt.Errorf("ocr.url is required for the http engine")
		}
	default:
		return fmt.Errorf("unknown ocr engine %q", c.OCR.Engine)
	}
	if c.Prescription.Concurrency < 1 {
		c.Prescription.Concurrency = 1
	}
	return nil
}
