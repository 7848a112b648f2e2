package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const defaultConfigPath = "./config/config.yaml"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env           string `yaml:"env" env:"ENV" env-default:"local"`
	Tokens        `yaml:"tokens"`
	Password      `yaml:"password"`
	RabbitMQ      `yaml:"rabbitmq"`
	Postgres      `yaml:"postgres"`
	Redis         `yaml:"redis"`
	LoginThrottle `yaml:"login_throttle"`
	RateLimit     `yaml:"rate_limit"`
	Admin         `yaml:"admin"`
	Sentry        `yaml:"sentry"`
	HTTPServer    `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-required:"true"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type Tokens struct {
	Issuer             string        `yaml:"issuer" env-default:"blog-auth"`
	AccessTokenSecret  string        `yaml:"access_token_secret" env:"JWT_ACCESS_SECRET" env-required:"true"`
	RefreshTokenSecret string        `yaml:"refresh_token_secret" env:"JWT_REFRESH_SECRET" env-required:"true"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl" env-default:"15m"`
	RefreshTokenTTL    time.Duration `yaml:"refresh_token_ttl" env-default:"168h"`
}

// * Password параметры argon2id
type Password struct {
	Memory      uint32 `yaml:"memory" env-default:"65536"`
	Iterations  uint32 `yaml:"iterations" env-default:"3"`
	Parallelism uint8  `yaml:"parallelism" env-default:"2"`
	SaltLength  uint32 `yaml:"salt_length" env-default:"16"`
	KeyLength   uint32 `yaml:"key_length" env-default:"32"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	QueueName string `yaml:"queue_name" env-default:"account_events"`
}

type LoginThrottle struct {
	MaxAttempts int           `yaml:"max_attempts" env-default:"5"`
	Window      time.Duration `yaml:"window" env-default:"15m"`
}

type RateLimit struct {
	Requests int           `yaml:"requests" env-default:"20"`
	Window   time.Duration `yaml:"window" env-default:"1m"`
}

// * Admin учетная запись, создаваемая при старте, если задана
type Admin struct {
	Email    string `yaml:"email" env:"ADMIN_EMAIL"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD"`
	Name     string `yaml:"name" env-default:"Administrator"`
}

type Sentry struct {
	DSN              string  `yaml:"dsn" env:"SENTRY_DSN"`
	TracesSampleRate float64 `yaml:"traces_sample_rate" env-default:"0"`
}

type EdgeConfig struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	Session    `yaml:"session"`
	Upstream   `yaml:"upstream"`
	Pages      `yaml:"pages"`
	RateLimit  `yaml:"rate_limit"`
	Sentry     `yaml:"sentry"`
	HTTPServer `yaml:"http_server"`
}

type Session struct {
	Secret     string        `yaml:"secret" env:"SESSION_SECRET" env-required:"true"`
	TTL        time.Duration `yaml:"ttl" env-default:"168h"`
	CookieName string        `yaml:"cookie_name" env-default:"session"`
	Secure     bool          `yaml:"secure" env-default:"false"`
}

type Upstream struct {
	APIURL   string        `yaml:"api_url" env:"API_URL" env-required:"true"`
	PagesURL string        `yaml:"pages_url" env:"PAGES_URL" env-required:"true"`
	Timeout  time.Duration `yaml:"timeout" env-default:"5s"`
}

type Pages struct {
	Login   string `yaml:"login" env-default:"/login"`
	Landing string `yaml:"landing" env-default:"/dashboard"`
}

type MailerConfig struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	RabbitMQ `yaml:"rabbitmq"`
	SMTP     `yaml:"smtp"`
	Sentry   `yaml:"sentry"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST" env-required:"true"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME" env-required:"true"`
	Password string `yaml:"password" env:"SMTP_PASSWORD" env-required:"true"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

func (c *Config) Validate() error {
	if c.Tokens.AccessTokenSecret == c.Tokens.RefreshTokenSecret {
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrInvalidConfig)
	}

	if c.Tokens.AccessTokenTTL <= 0 || c.Tokens.AccessTokenTTL >= c.Tokens.RefreshTokenTTL {
		return fmt.Errorf("%w: access token ttl must be positive and shorter than refresh token ttl", ErrInvalidConfig)
	}

	if c.LoginThrottle.MaxAttempts <= 0 || c.LoginThrottle.Window <= 0 {
		return fmt.Errorf("%w: login throttle must be positive", ErrInvalidConfig)
	}

	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return fmt.Errorf("%w: admin email and password must be set together", ErrInvalidConfig)
	}

	return nil
}

func (c *EdgeConfig) Validate() error {
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("%w: session secret must be at least 32 bytes", ErrInvalidConfig)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("%w: session ttl must be positive", ErrInvalidConfig)
	}

	return nil
}

func (c *MailerConfig) Validate() error {
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}

	return nil
}

type validatable interface {
	Validate() error
}

// * Load читает .env (если есть), затем yaml и переменные окружения
func Load[T any, PT interface {
	*T
	validatable
}](configPath string) (*T, error) {
	const op = "config.Load"

	_ = godotenv.Load()

	if configPath == "" {
		configPath = Path()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, configPath)
	}

	var cfg T

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to read config: %w", op, err)
	}

	if err := PT(&cfg).Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

// * Path путь к конфигу из CONFIG_PATH или значение по умолчанию
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}

	return defaultConfigPath
}

func MustLoad() *Config {
	cfg, err := Load[Config](Path())
	if err != nil {
		panic(err)
	}

	return cfg
}

func MustLoadEdge() *EdgeConfig {
	cfg, err := Load[EdgeConfig](Path())
	if err != nil {
		panic(err)
	}

	return cfg
}

func MustLoadMailer() *MailerConfig {
	cfg, err := Load[MailerConfig](Path())
	if err != nil {
		panic(err)
	}

	return cfg
}
