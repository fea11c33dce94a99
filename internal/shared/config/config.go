package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv         string
	StoreDriver    string
	EncryptionKey  string
	JWTSecret      string
	InternalAPIKey string
	HTTP           HTTPConfig
	Postgres       PostgresConfig
	Redis          RedisConfig
	Telegram       TelegramConfig
	Executor       ExecutorConfig
	Policy         PolicyConfig
	Bank           BankConfig
	OTP            OTPConfig
	Cron           CronConfig
}

type HTTPConfig struct {
	Addr           string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

type PostgresConfig struct {
	URL      string
	MaxConns int32
}

// RedisConfig is optional; an empty Addr falls back to the store-backed OTP limiter.
type RedisConfig struct {
	Addr     string
	Password string
}

// TelegramConfig is optional; an empty Token relays notifications to the log.
type TelegramConfig struct {
	Token  string
	ChatID int64
}

type ExecutorConfig struct {
	URL     string
	Timeout time.Duration
}

// PolicyConfig holds the payout authorization thresholds.
type PolicyConfig struct {
	DualAuthThreshold      decimal.Decimal
	DelayThreshold         decimal.Decimal
	MaxDailyAmount         decimal.Decimal
	PayoutDelay            time.Duration
	HoldApprovedUntilDelay bool
	Location               *time.Location
}

type BankConfig struct {
	CoolingPeriod   time.Duration
	ConfirmationTTL time.Duration
}

type OTPConfig struct {
	TTL          time.Duration
	MaxAttempts  int
	HourlyLimit  int
	CodeDigits   int
	RateLimitWin time.Duration
}

type CronConfig struct {
	ScheduledPayouts string
	OTPPurge         string
	SweepBatchSize   int
}

// bindings maps viper keys to environment variables.
var bindings = map[string]string{
	"app.env":                          "APP_ENV",
	"store.driver":                     "STORE_DRIVER",
	"encryption.key":                   "ENCRYPTION_KEY",
	"jwt.secret":                       "JWT_SECRET",
	"internal.api_key":                 "INTERNAL_API_KEY",
	"http.addr":                        "HTTP_ADDR",
	"http.request_timeout":             "HTTP_REQUEST_TIMEOUT",
	"http.allowed_origins":             "HTTP_ALLOWED_ORIGINS",
	"postgres.url":                     "DATABASE_URL",
	"postgres.max_conns":               "DATABASE_MAX_CONNS",
	"redis.addr":                       "REDIS_ADDR",
	"redis.password":                   "REDIS_PASSWORD",
	"telegram.token":                   "TELEGRAM_BOT_TOKEN",
	"telegram.chat_id":                 "TELEGRAM_CHAT_ID",
	"executor.url":                     "EXECUTOR_URL",
	"executor.timeout":                 "EXECUTOR_TIMEOUT",
	"policy.dual_auth_threshold":       "POLICY_DUAL_AUTH_THRESHOLD",
	"policy.delay_threshold":           "POLICY_DELAY_THRESHOLD",
	"policy.max_daily_amount":          "POLICY_MAX_DAILY_AMOUNT",
	"policy.payout_delay":              "POLICY_PAYOUT_DELAY",
	"policy.hold_approved_until_delay": "POLICY_HOLD_APPROVED_UNTIL_DELAY",
	"policy.timezone":                  "POLICY_TIMEZONE",
	"bank.cooling_period":              "BANK_COOLING_PERIOD",
	"bank.confirmation_ttl":            "BANK_CONFIRMATION_TTL",
	"otp.ttl":                          "OTP_TTL",
	"otp.max_attempts":                 "OTP_MAX_ATTEMPTS",
	"otp.hourly_limit":                 "OTP_HOURLY_LIMIT",
	"cron.scheduled_payouts":           "CRON_SCHEDULED_PAYOUTS",
	"cron.otp_purge":                   "CRON_OTP_PURGE",
	"cron.sweep_batch_size":            "CRON_SWEEP_BATCH_SIZE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.request_timeout", "30s")
	v.SetDefault("http.allowed_origins", "*")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("executor.timeout", "15s")
	v.SetDefault("policy.dual_auth_threshold", "10000")
	v.SetDefault("policy.delay_threshold", "50000")
	v.SetDefault("policy.max_daily_amount", "1000000")
	v.SetDefault("policy.payout_delay", "24h")
	v.SetDefault("policy.hold_approved_until_delay", true)
	v.SetDefault("policy.timezone", "Local")
	v.SetDefault("bank.cooling_period", "48h")
	v.SetDefault("bank.confirmation_ttl", "1h")
	v.SetDefault("otp.ttl", "5m")
	v.SetDefault("otp.max_attempts", 3)
	v.SetDefault("otp.hourly_limit", 3)
	v.SetDefault("cron.scheduled_payouts", "@every 1m")
	v.SetDefault("cron.otp_purge", "@every 15m")
	v.SetDefault("cron.sweep_batch_size", 50)
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// .env is optional; in prod the OS environment is authoritative.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}
	setDefaults(v)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := Config{
		AppEnv:         v.GetString("app.env"),
		StoreDriver:    v.GetString("store.driver"),
		EncryptionKey:  v.GetString("encryption.key"),
		JWTSecret:      v.GetString("jwt.secret"),
		InternalAPIKey: v.GetString("internal.api_key"),
		HTTP: HTTPConfig{
			Addr:           v.GetString("http.addr"),
			RequestTimeout: v.GetDuration("http.request_timeout"),
			AllowedOrigins: splitList(v.GetString("http.allowed_origins")),
		},
		Postgres: PostgresConfig{
			URL:      v.GetString("postgres.url"),
			MaxConns: v.GetInt32("postgres.max_conns"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
		},
		Telegram: TelegramConfig{
			Token:  v.GetString("telegram.token"),
			ChatID: v.GetInt64("telegram.chat_id"),
		},
		Executor: ExecutorConfig{
			URL:     v.GetString("executor.url"),
			Timeout: v.GetDuration("executor.timeout"),
		},
		Bank: BankConfig{
			CoolingPeriod:   v.GetDuration("bank.cooling_period"),
			ConfirmationTTL: v.GetDuration("bank.confirmation_ttl"),
		},
		OTP: OTPConfig{
			TTL:          v.GetDuration("otp.ttl"),
			MaxAttempts:  v.GetInt("otp.max_attempts"),
			HourlyLimit:  v.GetInt("otp.hourly_limit"),
			CodeDigits:   6,
			RateLimitWin: time.Hour,
		},
		Cron: CronConfig{
			ScheduledPayouts: v.GetString("cron.scheduled_payouts"),
			OTPPurge:         v.GetString("cron.otp_purge"),
			SweepBatchSize:   v.GetInt("cron.sweep_batch_size"),
		},
	}

	policy, err := loadPolicy(v)
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitList parses a comma-separated env value.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadPolicy(v *viper.Viper) (PolicyConfig, error) {
	amounts := map[string]decimal.Decimal{}
	for _, key := range []string{"policy.dual_auth_threshold", "policy.delay_threshold", "policy.max_daily_amount"} {
		d, err := decimal.NewFromString(v.GetString(key))
		if err != nil {
			return PolicyConfig{}, fmt.Errorf("%s must be a decimal: %w", key, err)
		}
		if !d.IsPositive() {
			return PolicyConfig{}, fmt.Errorf("%s must be positive, got %s", key, d)
		}
		amounts[key] = d
	}

	loc, err := time.LoadLocation(v.GetString("policy.timezone"))
	if err != nil {
		return PolicyConfig{}, fmt.Errorf("invalid policy.timezone: %w", err)
	}

	return PolicyConfig{
		DualAuthThreshold:      amounts["policy.dual_auth_threshold"],
		DelayThreshold:         amounts["policy.delay_threshold"],
		MaxDailyAmount:         amounts["policy.max_daily_amount"],
		PayoutDelay:            v.GetDuration("policy.payout_delay"),
		HoldApprovedUntilDelay: v.GetBool("policy.hold_approved_until_delay"),
		Location:               loc,
	}, nil
}

func (c *Config) validate() error {
	if c.EncryptionKey == "" {
		return errors.New("ENCRYPTION_KEY is not set in environment or .env file")
	}
	if len(c.EncryptionKey) != 64 {
		return fmt.Errorf("ENCRYPTION_KEY must be a 64-character hex string (32 bytes), but got %d chars", len(c.EncryptionKey))
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set in environment or .env file")
	}

	switch c.StoreDriver {
	case "postgres":
		if c.Postgres.URL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case "memory":
		if c.AppEnv == "prod" {
			return errors.New("STORE_DRIVER=memory is not allowed in prod")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER: %s", c.StoreDriver)
	}

	if c.AppEnv == "prod" && c.Executor.URL == "" {
		return errors.New("EXECUTOR_URL is required in prod")
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	if c.Bank.CoolingPeriod <= 0 || c.Bank.ConfirmationTTL <= 0 {
		return errors.New("bank cooling period and confirmation TTL must be positive")
	}
	if c.OTP.TTL <= 0 || c.OTP.MaxAttempts <= 0 || c.OTP.HourlyLimit <= 0 {
		return errors.New("OTP TTL, max attempts and hourly limit must be positive")
	}
	if c.Policy.PayoutDelay <= 0 {
		return errors.New("policy payout delay must be positive")
	}
	return nil
}
