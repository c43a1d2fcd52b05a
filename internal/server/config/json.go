package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/flagx"
	"github.com/dmitrijs2005/quicklyway/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its non-zero fields are copied into the runtime
// Config struct, so a partial file keeps the remaining values.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	Environment                  string         `json:"environment"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	RefreshSecretKey             string         `json:"refresh_secret_key"`
	ResetSecretKey               string         `json:"reset_secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	ResetTokenValidityDuration   timex.Duration `json:"reset_token_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	FrontendURL                  string         `json:"frontend_url"`
	LogFormat                    string         `json:"log_format"`
	Notifier                     string         `json:"notifier"`
	NotifyTimeout                timex.Duration `json:"notify_timeout"`
	SMTPHost                     string         `json:"smtp_host"`
	SMTPPort                     string         `json:"smtp_port"`
	SMTPUsername                 string         `json:"smtp_username"`
	SMTPPassword                 string         `json:"smtp_password"`
	MailFrom                     string         `json:"mail_from"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	RedisDB                      int            `json:"redis_db"`
	RedisMailStream              string         `json:"redis_mail_stream"`
	RedisMailGroup               string         `json:"redis_mail_group"`
	RedisMailConsumer            string         `json:"redis_mail_consumer"`
	RedisMailClaimInterval       timex.Duration `json:"redis_mail_claim_interval"`
	ResetSweepSchedule           string         `json:"reset_sweep_schedule"`
	HTTPReadTimeout              timex.Duration `json:"http_read_timeout"`
	HTTPWriteTimeout             timex.Duration `json:"http_write_timeout"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags. If neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.Environment, c.Environment)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.RefreshSecretKey, c.RefreshSecretKey)
	setString(&config.ResetSecretKey, c.ResetSecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.ResetTokenValidityDuration, c.ResetTokenValidityDuration)
	setInt(&config.BcryptCost, c.BcryptCost)
	setString(&config.FrontendURL, c.FrontendURL)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.Notifier, c.Notifier)
	setDuration(&config.NotifyTimeout, c.NotifyTimeout)
	setString(&config.SMTPHost, c.SMTPHost)
	setString(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RedisDB, c.RedisDB)
	setString(&config.RedisMailStream, c.RedisMailStream)
	setString(&config.RedisMailGroup, c.RedisMailGroup)
	setString(&config.RedisMailConsumer, c.RedisMailConsumer)
	setDuration(&config.RedisMailClaimInterval, c.RedisMailClaimInterval)
	setString(&config.ResetSweepSchedule, c.ResetSweepSchedule)
	setDuration(&config.HTTPReadTimeout, c.HTTPReadTimeout)
	setDuration(&config.HTTPWriteTimeout, c.HTTPWriteTimeout)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
