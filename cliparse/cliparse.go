package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	BaseURL      string

	// Secrets
	TokenSecret string
	IDSalt      string

	// Third-party services (empty disables)
	RecaptchaSecret   string
	RecaptchaMinScore float64
	SMSGatewayURL     string
	SMSGatewayToken   string
	SentryDSN         string

	PhoneRegion string
	Timezone    string
	Location    *time.Location

	ClientRegistrationEnabled bool
	ShopRegistrationEnabled   bool

	// Queue rules
	GoToShopThreshold int
	MaxPendingTurns   int
	MaxDailyTurns     int

	// Phone verification
	CodeTTL         time.Duration
	MaxCodesPerDay  int
	MaxCodeAttempts int

	SessionTTL         time.Duration
	RateLimitPerMinute int

	// Read client IPs from X-Forwarded-For / X-Real-IP
	TrustProxy bool
}

// ParseFlags validates flags and fills the rest from the environment.
// Variables from the env file never override variables already set.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile string

	fs := flag.NewFlagSet("cauda", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&envFile, "env", "", "Path to a .env file")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.TokenSecret, "session-secret", "", "Session token secret (prefer env)")
	fs.StringVar(&cfg.IDSalt, "id-salt", "", "Public id salt (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if envFile == "" {
		envFile = os.Getenv("CAUDA_ENV_FILE")
	}
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		port, err := envInt("PORT", 3318)
		if err != nil {
			return Config{}, err
		}
		cfg.Port = port
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = envString("DATABASE_TYPE", "sqlite")
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	if cfg.TokenSecret == "" {
		cfg.TokenSecret = os.Getenv("SESSION_SECRET")
	}
	if cfg.TokenSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}

	if cfg.IDSalt == "" {
		cfg.IDSalt = os.Getenv("HASHIDS_SALT")
	}
	if cfg.IDSalt == "" {
		return Config{}, errors.New("HASHIDS_SALT required")
	}

	cfg.BaseURL = envString("BASE_URL", "https://cauda.app")
	cfg.RecaptchaSecret = os.Getenv("RECAPTCHA_SECRET")
	cfg.SMSGatewayURL = os.Getenv("SMS_GATEWAY_URL")
	cfg.SMSGatewayToken = os.Getenv("SMS_GATEWAY_TOKEN")
	cfg.SentryDSN = os.Getenv("SENTRY_DSN")
	cfg.PhoneRegion = envString("PHONE_REGION", "AR")
	cfg.Timezone = envString("TZ_NAME", "America/Argentina/Buenos_Aires")
	cfg.ClientRegistrationEnabled = os.Getenv("CAUDA_CLIENT_REGISTRATION_ENABLED") == "1"
	cfg.ShopRegistrationEnabled = os.Getenv("CAUDA_SHOP_REGISTRATION_ENABLED") == "1"
	cfg.TrustProxy = os.Getenv("TRUST_PROXY") == "1"

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TZ_NAME: %w", err)
	}
	cfg.Location = loc

	score, err := envFloat("RECAPTCHA_MIN_SCORE", 0.5)
	if err != nil {
		return Config{}, err
	}
	cfg.RecaptchaMinScore = score

	ints := []struct {
		dst  *int
		name string
		def  int
	}{
		{&cfg.GoToShopThreshold, "GO_TO_SHOP_THRESHOLD", 3},
		{&cfg.MaxPendingTurns, "MAX_PENDING_TURNS", 3},
		{&cfg.MaxDailyTurns, "MAX_DAILY_TURNS", 5},
		{&cfg.MaxCodesPerDay, "MAX_CODES_PER_DAY", 3},
		{&cfg.MaxCodeAttempts, "MAX_CODE_ATTEMPTS", 5},
		{&cfg.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE", 10},
	}
	for _, i := range ints {
		v, err := envInt(i.name, i.def)
		if err != nil {
			return Config{}, err
		}
		if v < 1 {
			return Config{}, fmt.Errorf("%s must be positive", i.name)
		}
		*i.dst = v
	}

	if cfg.CodeTTL, err = envDuration("CODE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = envDuration("SESSION_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", name)
	}
	return v, nil
}

func envFloat(name string, def float64) (float64, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", name)
	}
	return v, nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", name)
	}
	return v, nil
}
