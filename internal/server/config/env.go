package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv overlays Config with environment variables. A dotenv file is
// loaded first: the path given by -env-file, or ".env" in the working
// directory when present. Variables already set in the process environment
// take precedence over the file.
//
// Recognized variables:
//
//	HTTP_ADDR, APP_ENV, DATABASE_DSN,
//	JWT_SECRET, JWT_REFRESH_SECRET, JWT_RESET_SECRET,
//	JWT_ACCESS_TTL, JWT_REFRESH_TTL, JWT_RESET_TTL (Go durations),
//	BCRYPT_COST, FRONTEND_URL, LOG_FORMAT, NOTIFIER, NOTIFY_TIMEOUT,
//	SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, EMAIL_FROM,
//	REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_MAIL_STREAM,
//	REDIS_MAIL_GROUP, REDIS_MAIL_CONSUMER, REDIS_MAIL_CLAIM_INTERVAL,
//	RESET_SWEEP_SCHEDULE
//
// A missing explicit -env-file or a malformed value panics, like the JSON loader.
func parseEnv(config *Config) {
	envFile := flagx.EnvFileFlags()
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	envString("HTTP_ADDR", &config.EndpointAddrHTTP)
	envString("APP_ENV", &config.Environment)
	envString("DATABASE_DSN", &config.DatabaseDSN)
	envString("JWT_SECRET", &config.SecretKey)
	envString("JWT_REFRESH_SECRET", &config.RefreshSecretKey)
	envString("JWT_RESET_SECRET", &config.ResetSecretKey)
	envDuration("JWT_ACCESS_TTL", &config.AccessTokenValidityDuration)
	envDuration("JWT_REFRESH_TTL", &config.RefreshTokenValidityDuration)
	envDuration("JWT_RESET_TTL", &config.ResetTokenValidityDuration)
	envInt("BCRYPT_COST", &config.BcryptCost)
	envString("FRONTEND_URL", &config.FrontendURL)
	envString("LOG_FORMAT", &config.LogFormat)
	envString("NOTIFIER", &config.Notifier)
	envDuration("NOTIFY_TIMEOUT", &config.NotifyTimeout)
	envString("SMTP_HOST", &config.SMTPHost)
	envString("SMTP_PORT", &config.SMTPPort)
	envString("SMTP_USERNAME", &config.SMTPUsername)
	envString("SMTP_PASSWORD", &config.SMTPPassword)
	envString("EMAIL_FROM", &config.MailFrom)
	envString("REDIS_ADDR", &config.RedisAddr)
	envString("REDIS_PASSWORD", &config.RedisPassword)
	envInt("REDIS_DB", &config.RedisDB)
	envString("REDIS_MAIL_STREAM", &config.RedisMailStream)
	envString("REDIS_MAIL_GROUP", &config.RedisMailGroup)
	envString("REDIS_MAIL_CONSUMER", &config.RedisMailConsumer)
	envDuration("REDIS_MAIL_CLAIM_INTERVAL", &config.RedisMailClaimInterval)
	envString("RESET_SWEEP_SCHEDULE", &config.ResetSweepSchedule)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		*dst = n
	}
}

func envDuration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		*dst = d
	}
}
