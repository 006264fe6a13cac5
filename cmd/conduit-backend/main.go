package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ethpandaops/conduit-client/backend"
	"github.com/ethpandaops/conduit-client/metrics"
	"github.com/ethpandaops/conduit-client/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

type CliArgs struct {
	verbose     bool
	version     bool
	help        bool
	nocolor     bool
	bind        string
	port        int
	jwtSecret   string
	issueToken  string
	tokenTTL    time.Duration
	metricsPort int
	metricsBind string
}

func getEnvBool(key string, defaultValue bool) bool { //nolint:unparam // ignore
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}

	return defaultValue
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}

	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}

	return defaultValue
}

func main() {
	// Load defaults from environment variables
	cliArgs := CliArgs{
		verbose:     getEnvBool("CONDUIT_VERBOSE", false),
		version:     getEnvBool("CONDUIT_VERSION", false),
		help:        getEnvBool("CONDUIT_HELP", false),
		nocolor:     getEnvBool("CONDUIT_NO_COLOR", false),
		bind:        getEnvString("CONDUIT_BIND_ADDRESS", "127.0.0.1"),
		port:        getEnvInt("CONDUIT_PORT", 8090),
		jwtSecret:   getEnvString("CONDUIT_JWT_SECRET", ""),
		tokenTTL:    getEnvDuration("CONDUIT_TOKEN_TTL", 24*time.Hour),
		metricsPort: getEnvInt("CONDUIT_METRICS_PORT", 0),
		metricsBind: getEnvString("CONDUIT_METRICS_BIND", "127.0.0.1"),
	}

	flags := pflag.NewFlagSet("conduit-backend", pflag.ExitOnError)
	flags.BoolVarP(&cliArgs.verbose, "verbose", "v", cliArgs.verbose, "Run with verbose output (env: CONDUIT_VERBOSE)")
	flags.BoolVarP(&cliArgs.version, "version", "V", cliArgs.version, "Print version information (env: CONDUIT_VERSION)")
	flags.BoolVarP(&cliArgs.help, "help", "h", cliArgs.help, "Print usage (env: CONDUIT_HELP)")
	flags.BoolVar(&cliArgs.nocolor, "no-color", cliArgs.nocolor, "Do not use terminal colors in output (env: CONDUIT_NO_COLOR)")
	flags.StringVarP(&cliArgs.bind, "bind-address", "b", cliArgs.bind, "Address to bind to and listen for incoming requests (env: CONDUIT_BIND_ADDRESS)")
	flags.IntVarP(&cliArgs.port, "port", "p", cliArgs.port, "Port serving /api and /ws (env: CONDUIT_PORT)")
	flags.StringVar(&cliArgs.jwtSecret, "jwt-secret", cliArgs.jwtSecret, "HS256 secret for bearer tokens, unverified tokens are accepted when empty (env: CONDUIT_JWT_SECRET)")
	flags.StringVar(&cliArgs.issueToken, "issue-token", "", "Print a token for the given username and exit (requires --jwt-secret)")
	flags.DurationVar(&cliArgs.tokenTTL, "token-ttl", cliArgs.tokenTTL, "Lifetime of issued tokens, 0 for no expiry (env: CONDUIT_TOKEN_TTL)")
	flags.IntVar(&cliArgs.metricsPort, "metrics-port", cliArgs.metricsPort, "Optional port for Prometheus metrics endpoint (env: CONDUIT_METRICS_PORT)")
	flags.StringVar(&cliArgs.metricsBind, "metrics-bind", cliArgs.metricsBind, "Optional address to bind to for the Prometheus metrics endpoint (env: CONDUIT_METRICS_BIND)")

	//nolint:errcheck // ignore
	flags.Parse(os.Args)

	if cliArgs.help {
		flags.PrintDefaults()
		return
	}

	if cliArgs.version {
		fmt.Println(utils.GetBuildVersion())
		return
	}

	logger := utils.NewLogger(cliArgs.verbose, cliArgs.nocolor)

	conduit := backend.New(&backend.Config{
		JWTSecret: []byte(cliArgs.jwtSecret),
	}, backend.NewStore(), logger.WithField("module", "backend"))

	if cliArgs.issueToken != "" {
		token, err := conduit.IssueToken(cliArgs.issueToken, cliArgs.tokenTTL)
		if err != nil {
			logger.Errorf("Failed issuing token: %v", err)
			os.Exit(1)
		}

		fmt.Println(token)

		return
	}

	logger.WithFields(logrus.Fields{
		"version": utils.GetBuildVersion(),
	}).Infof("initializing conduit-backend")

	if cliArgs.jwtSecret == "" {
		logger.Warn("no jwt secret configured, token signatures are not checked")
	}

	if cliArgs.metricsPort > 0 {
		srv := metrics.NewServer(cliArgs.metricsBind, cliArgs.metricsPort)
		logger.Infof("Metrics server listening on: %v", srv.Addr)

		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	server := backend.NewServer(conduit, logger)

	if err := server.Start(cliArgs.bind, cliArgs.port); err != nil {
		logger.Errorf("Failed processing server: %v", err)
	}
}
