package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3001")
//	-d string   PostgreSQL DSN
//	-s string   access token (and default reset token) HMAC secret
//	-k string   refresh token HMAC secret
//	-x string   dedicated reset token HMAC secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-w int      reset token validity, minutes
//	-f string   frontend base URL used in reset links
//	-e string   environment ("development" or "production")
//	-n string   notifier ("log", "smtp", "redis")
//	-l string   log format ("json" or "console")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with -c/-config and -env-file.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-k", "-x", "-t", "-r", "-w", "-f", "-e", "-n", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "access token secret key")
	fs.StringVar(&config.RefreshSecretKey, "k", config.RefreshSecretKey, "refresh token secret key")
	fs.StringVar(&config.ResetSecretKey, "x", config.ResetSecretKey, "reset token secret key (defaults to the access token secret)")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	resetTokenValidityDuration := fs.Int("w", int(config.ResetTokenValidityDuration.Minutes()), "reset_token_validity_duration (in minutes)")

	fs.StringVar(&config.FrontendURL, "f", config.FrontendURL, "frontend base URL")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment")
	fs.StringVar(&config.Notifier, "n", config.Notifier, "notifier: log, smtp or redis")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format: json or console")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.ResetTokenValidityDuration = time.Duration(*resetTokenValidityDuration) * time.Minute
}
