package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Email change strategies. Insecure applies the new address immediately,
// the default strategy requires confirmation from the new address.
const (
	EmailChangeInsecure = 0
	EmailChangeDefault  = 1
	EmailChangeSecure   = 2
)

type Config struct {
	Server       ServerConfig       `env:",prefix=SERVER_"`
	Postgres     PostgresConfig     `env:",prefix=POSTGRES_"`
	Redis        RedisConfig        `env:",prefix=REDIS_"`
	SMTP         SMTPConfig         `env:",prefix=SMTP_"`
	JWT          JWTConfig          `env:",prefix=JWT_"`
	Security     SecurityConfig     `env:",prefix="`
	Registration RegistrationConfig `env:",prefix="`
	TwoFactor    TwoFactorConfig    `env:",prefix=TWOFACTOR_"`
	Session      SessionConfig      `env:",prefix=SESSION_"`
	Social       SocialConfig       `env:",prefix=SOCIAL_"`
	Captcha      CaptchaConfig      `env:",prefix=CAPTCHA_"`
	GDPR         GDPRConfig         `env:",prefix=GDPR_"`
	CORS         CORSConfig         `env:",prefix=CORS_"`
	Env          string             `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=user_service"`
	Password string `env:"PASSWORD,default=user_service_password"`
	DBName   string `env:"DB,default=user_service_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type SMTPConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=587"`
	Username string `env:"USERNAME,default="`
	Password string `env:"PASSWORD,default="`
	From     string `env:"FROM,default=noreply@localhost"`
	FromName string `env:"FROM_NAME,default=User Service"`
	BaseURL  string `env:"BASE_URL,default=http://localhost:8080"`
}

type JWTConfig struct {
	Secret            string   `env:"SECRET,required"`
	AccessTokenExpiry Duration `env:"ACCESS_TOKEN_EXPIRY,default=15m"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	MinPasswordLength int      `env:"MIN_PASSWORD_LENGTH,default=8"`
	MaxPasswordLength int      `env:"MAX_PASSWORD_LENGTH,default=72"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
	Admins            []string `env:"ADMINS,default="`
}

type RegistrationConfig struct {
	EnableRegistration      bool     `env:"ENABLE_REGISTRATION,default=true"`
	EnableConfirmation      bool     `env:"ENABLE_CONFIRMATION,default=true"`
	EnableUnconfirmedLogin  bool     `env:"ENABLE_UNCONFIRMED_LOGIN,default=false"`
	EnableGeneratedPassword bool     `env:"ENABLE_GENERATED_PASSWORD,default=false"`
	EnablePasswordRecovery  bool     `env:"ENABLE_PASSWORD_RECOVERY,default=true"`
	ConfirmWithin           Duration `env:"CONFIRM_WITHIN,default=24h"`
	RecoverWithin           Duration `env:"RECOVER_WITHIN,default=6h"`
	RememberFor             Duration `env:"REMEMBER_FOR,default=14d"`
	EmailChangeStrategy     int      `env:"EMAIL_CHANGE_STRATEGY,default=1"`
}

type TwoFactorConfig struct {
	Enabled          bool     `env:"ENABLED,default=false"`
	Issuer           string   `env:"ISSUER,default=User Service"`
	BackupCodesCount int      `env:"BACKUP_CODES,default=10"`
	RequireForAdmins bool     `env:"REQUIRE_FOR_ADMINS,default=false"`
	PendingTTL       Duration `env:"PENDING_TTL,default=5m"`
}

type SessionConfig struct {
	HistoryEnabled bool `env:"HISTORY_ENABLED,default=true"`
	HistoryLimit   int  `env:"HISTORY_LIMIT,default=10"`
}

type SocialConfig struct {
	EnableRegistration bool                 `env:"ENABLE_REGISTRATION,default=true"`
	EnableConnect      bool                 `env:"ENABLE_CONNECT,default=true"`
	Google             SocialProviderConfig `env:",prefix=GOOGLE_"`
	GitHub             SocialProviderConfig `env:",prefix=GITHUB_"`
}

type SocialProviderConfig struct {
	ClientID     string `env:"CLIENT_ID,default="`
	ClientSecret string `env:"CLIENT_SECRET,default="`
	AuthURL      string `env:"AUTH_URL,default="`
	TokenURL     string `env:"TOKEN_URL,default="`
	UserInfoURL  string `env:"USERINFO_URL,default="`
	RedirectURL  string `env:"REDIRECT_URL,default="`
}

type CaptchaConfig struct {
	Enabled   bool   `env:"ENABLED,default=false"`
	Secret    string `env:"SECRET,default="`
	VerifyURL string `env:"VERIFY_URL,default=https://www.google.com/recaptcha/api/siteverify"`
}

type GDPRConfig struct {
	ConsentEnabled            bool   `env:"CONSENT_ENABLED,default=false"`
	ConsentVersion            string `env:"CONSENT_VERSION,default=1.0"`
	RequireBeforeRegistration bool   `env:"REQUIRE_BEFORE_REGISTRATION,default=true"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if config.Security.BCryptCost < 4 || config.Security.BCryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}

	if config.Registration.EmailChangeStrategy < EmailChangeInsecure ||
		config.Registration.EmailChangeStrategy > EmailChangeSecure {
		return nil, fmt.Errorf("EMAIL_CHANGE_STRATEGY must be 0, 1 or 2")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
