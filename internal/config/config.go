package config

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	pkgconfig "github.com/Skotchmaster/survey_builder/pkg/config"
	jwthelp "github.com/Skotchmaster/survey_builder/pkg/jwt"
	"github.com/Skotchmaster/survey_builder/pkg/tokens"
)

type Config struct {
	ServiceName string
	Port        string
	LogLevel    string
	DatabaseURL string

	JWTSecret    []byte
	JWTAlgorithm string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration

	CookieName     string
	CookiePath     string
	CookieSameSite http.SameSite
	CookieSecure   bool
	BcryptCost     int

	AllowedOrigins []string
	KafkaBrokers   []string

	ESURL         string
	ESUser        string
	ESPassword    string
	ESSurveyIndex string
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("env_file_not_found", "reason", "using system environment variables", "error", err)
	}

	return &Config{
		ServiceName: pkgconfig.EnvDefault("SERVICE_NAME", "survey-builder"),
		Port:        pkgconfig.EnvDefault("SERVER_PORT", "8080"),
		LogLevel:    pkgconfig.EnvDefault("LOG_LEVEL", "info"),
		DatabaseURL: pkgconfig.EnvDefault("DATABASE_URL", ""),

		JWTSecret:    []byte(pkgconfig.EnvDefault("JWT_SECRET", "")),
		JWTAlgorithm: pkgconfig.EnvDefault("JWT_ALGORITHM", "HS256"),
		AccessTTL: pkgconfig.EnvDurationDefault("ACCESS_TTL",
			time.Duration(pkgconfig.EnvIntDefault("ACCESS_EXPIRE_MIN", 15))*time.Minute),
		RefreshTTL: pkgconfig.EnvDurationDefault("REFRESH_TTL",
			time.Duration(pkgconfig.EnvIntDefault("REFRESH_EXPIRE_DAYS", 7))*24*time.Hour),

		CookieName:     pkgconfig.EnvDefault("COOKIE_NAME", "refresh_token"),
		CookiePath:     pkgconfig.EnvDefault("REFRESH_COOKIE_PATH", "/auth/refresh"),
		CookieSameSite: jwthelp.ParseSameSite(pkgconfig.EnvDefault("COOKIE_SAMESITE", "lax")),
		CookieSecure:   pkgconfig.EnvDefault("COOKIE_SECURE", "true") != "false",
		BcryptCost:     pkgconfig.EnvIntDefault("BCRYPT_COST", bcrypt.DefaultCost),

		AllowedOrigins: pkgconfig.CSV(pkgconfig.EnvDefault("ALLOWED_ORIGINS", "")),
		KafkaBrokers:   pkgconfig.CSV(pkgconfig.EnvDefault("KAFKA_BROKERS", "")),

		ESURL:         pkgconfig.EnvDefault("ES_URL", ""),
		ESUser:        pkgconfig.EnvDefault("ES_USER", ""),
		ESPassword:    pkgconfig.EnvDefault("ES_PASSWORD", ""),
		ESSurveyIndex: pkgconfig.EnvDefault("ES_SURVEY_INDEX", "surveys"),
	}
}

func (c *Config) Tokens() tokens.Config {
	return tokens.Config{
		Secret:     c.JWTSecret,
		Algorithm:  c.JWTAlgorithm,
		AccessTTL:  c.AccessTTL,
		RefreshTTL: c.RefreshTTL,
	}
}

func (c *Config) RefreshCookie() jwthelp.CookieConfig {
	return jwthelp.CookieConfig{
		Name:     c.CookieName,
		Path:     c.CookiePath,
		SameSite: c.CookieSameSite,
		Secure:   c.CookieSecure,
	}
}
