package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethpandaops/conduit-client/api"
	"github.com/ethpandaops/conduit-client/metrics"
	"github.com/ethpandaops/conduit-client/output"
	"github.com/ethpandaops/conduit-client/qewd"
	"github.com/ethpandaops/conduit-client/services"
	"github.com/ethpandaops/conduit-client/tokens"
	"github.com/ethpandaops/conduit-client/types"
	"github.com/ethpandaops/conduit-client/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

type CliArgs struct {
	verbose        bool
	version        bool
	help           bool
	nocolor        bool
	apiURL         string
	qewdURL        string
	application    string
	token          string
	tokenFile      string
	routes         []string
	query          string
	params         []string
	data           string
	feed           bool
	replyTimeout   time.Duration
	connectTimeout time.Duration
	reconnectDelay time.Duration
	metricsPort    int
	metricsBind    string
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

func getEnvStringSlice(key string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}

	return nil
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}

	return defaultValue
}

const usage = `usage: conduit-client [flags] <command> [args]

commands:
  tags                          list all tags
  articles [--feed]             list articles (filters via --param tag=..., author=..., limit=...)
  article <slug>                show one article
  create-article --data <json>  create an article
  update-article <slug> --data <json>
  delete-article <slug>
  comments <slug>               list comments of an article
  comment <slug> <body>         add a comment
  delete-comment <slug> <id>
  favorite <slug>
  unfavorite <slug>
  watch                         log connection lifecycle changes until interrupted

flags:
`

func main() {
	defaults := qewd.DefaultConfig()

	// Load defaults from environment variables
	cliArgs := CliArgs{
		verbose:        getEnvBool("CONDUIT_VERBOSE", false),
		version:        getEnvBool("CONDUIT_VERSION", false),
		help:           getEnvBool("CONDUIT_HELP", false),
		nocolor:        getEnvBool("CONDUIT_NO_COLOR", false),
		apiURL:         getEnvString("CONDUIT_API_URL", "http://localhost:8090/api"),
		qewdURL:        getEnvString("CONDUIT_QEWD_URL", defaults.URL),
		application:    getEnvString("CONDUIT_APPLICATION", defaults.Application),
		token:          getEnvString("CONDUIT_TOKEN", ""),
		tokenFile:      getEnvString("CONDUIT_TOKEN_FILE", ""),
		routes:         getEnvStringSlice("CONDUIT_ROUTES"),
		query:          getEnvString("CONDUIT_QUERY", ""),
		replyTimeout:   getEnvDuration("CONDUIT_REPLY_TIMEOUT", defaults.ReplyTimeout),
		connectTimeout: getEnvDuration("CONDUIT_CONNECT_TIMEOUT", 10*time.Second),
		reconnectDelay: getEnvDuration("CONDUIT_RECONNECT_DELAY", 2*time.Second),
		metricsPort:    getEnvInt("CONDUIT_METRICS_PORT", 0),
		metricsBind:    getEnvString("CONDUIT_METRICS_BIND", "127.0.0.1"),
	}

	flags := pflag.NewFlagSet("conduit-client", pflag.ExitOnError)
	flags.BoolVarP(&cliArgs.verbose, "verbose", "v", cliArgs.verbose, "Run with verbose output (env: CONDUIT_VERBOSE)")
	flags.BoolVarP(&cliArgs.version, "version", "V", cliArgs.version, "Print version information (env: CONDUIT_VERSION)")
	flags.BoolVarP(&cliArgs.help, "help", "h", cliArgs.help, "Print usage (env: CONDUIT_HELP)")
	flags.BoolVar(&cliArgs.nocolor, "no-color", cliArgs.nocolor, "Do not use terminal colors in output (env: CONDUIT_NO_COLOR)")
	flags.StringVar(&cliArgs.apiURL, "api-url", cliArgs.apiURL, "Base URL of the REST api (env: CONDUIT_API_URL)")
	flags.StringVar(&cliArgs.qewdURL, "qewd-url", cliArgs.qewdURL, "WebSocket endpoint of the QEWD backend (env: CONDUIT_QEWD_URL)")
	flags.StringVar(&cliArgs.application, "application", cliArgs.application, "QEWD application name to register (env: CONDUIT_APPLICATION)")
	flags.StringVar(&cliArgs.token, "token", cliArgs.token, "JWT sent with authenticated calls (env: CONDUIT_TOKEN)")
	flags.StringVar(&cliArgs.tokenFile, "token-file", cliArgs.tokenFile, "File holding the JWT, takes precedence over --token (env: CONDUIT_TOKEN_FILE)")
	flags.StringSliceVar(&cliArgs.routes, "route", cliArgs.routes, "Transport override (format: operation=rest|qewd, operation * for all, can be repeated) (env: CONDUIT_ROUTES)")
	flags.StringVarP(&cliArgs.query, "query", "q", cliArgs.query, "jq expression applied to the result before printing (env: CONDUIT_QUERY)")
	flags.StringSliceVarP(&cliArgs.params, "param", "p", nil, "Query parameter for article lists (format: key=value, can be repeated)")
	flags.StringVarP(&cliArgs.data, "data", "d", "", "Article fields as JSON object for create-article and update-article")
	flags.BoolVar(&cliArgs.feed, "feed", false, "List the personal feed instead of all articles")
	flags.DurationVar(&cliArgs.replyTimeout, "reply-timeout", cliArgs.replyTimeout, "Maximum wait for a QEWD answer, 0 disables (env: CONDUIT_REPLY_TIMEOUT)")
	flags.DurationVar(&cliArgs.connectTimeout, "connect-timeout", cliArgs.connectTimeout, "Maximum wait for QEWD registration (env: CONDUIT_CONNECT_TIMEOUT)")
	flags.DurationVar(&cliArgs.reconnectDelay, "reconnect-delay", cliArgs.reconnectDelay, "Delay between QEWD reconnect attempts (env: CONDUIT_RECONNECT_DELAY)")
	flags.IntVar(&cliArgs.metricsPort, "metrics-port", cliArgs.metricsPort, "Optional port for Prometheus metrics endpoint (env: CONDUIT_METRICS_PORT)")
	flags.StringVar(&cliArgs.metricsBind, "metrics-bind", cliArgs.metricsBind, "Optional address to bind to for the Prometheus metrics endpoint (env: CONDUIT_METRICS_BIND)")

	//nolint:errcheck // ignore
	flags.Parse(os.Args)

	if cliArgs.version {
		fmt.Println(utils.GetBuildVersion())
		return
	}

	if cliArgs.help || flags.NArg() < 2 {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()

		return
	}

	logger := utils.NewLogger(cliArgs.verbose, cliArgs.nocolor)

	logger.WithFields(logrus.Fields{
		"version": utils.GetBuildVersion(),
	}).Debugf("initializing conduit-client")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, &cliArgs, flags.Arg(1), flags.Args()[2:], logger); err != nil {
		logger.WithError(err).Error("command failed")
		os.Exit(1) //nolint:gocritic // ignore
	}
}

func buildTokenSource(args *CliArgs, logger logrus.FieldLogger) types.TokenSource {
	var source types.TokenSource

	if args.tokenFile != "" {
		source = tokens.NewFileStore(args.tokenFile)
	} else {
		source = tokens.NewMemoryStore(args.token)
	}

	if token := source.GetToken(); token != "" {
		if claims, err := tokens.Inspect(token); err != nil {
			logger.WithError(err).Warn("token is not a readable JWT")
		} else {
			logger.WithFields(logrus.Fields{
				"username": claims.Username,
				"expires":  claims.ExpiresAt,
			}).Debug("using token")
		}
	}

	return source
}

// commandOperations lists the operations a command may issue.
func commandOperations(command string, feed bool) []types.Operation {
	switch command {
	case "tags":
		return []types.Operation{types.OpGetTags}
	case "articles":
		if feed {
			return []types.Operation{types.OpGetArticlesFeed}
		}

		return []types.Operation{types.OpGetArticlesList}
	case "article":
		return []types.Operation{types.OpGetArticleBySlug}
	case "create-article":
		return []types.Operation{types.OpCreateArticle}
	case "update-article":
		return []types.Operation{types.OpUpdateArticle}
	case "delete-article":
		return []types.Operation{types.OpDeleteArticle}
	case "comments":
		return []types.Operation{types.OpGetComments}
	case "comment":
		return []types.Operation{types.OpCreateComment}
	case "delete-comment":
		return []types.Operation{types.OpDeleteComment}
	case "favorite":
		return []types.Operation{types.OpFavoriteArticle}
	case "unfavorite":
		return []types.Operation{types.OpUnfavoriteArticle}
	}

	return nil
}

// needsQEWD reports whether command has to open the socket: watch always
// does, other commands only when one of their operations is routed there.
func needsQEWD(routes services.Routes, command string, feed bool) bool {
	if command == "watch" {
		return true
	}

	for _, op := range commandOperations(command, feed) {
		if routes[op] == types.TransportQEWD {
			return true
		}
	}

	return false
}

func run(ctx context.Context, args *CliArgs, command string, cmdArgs []string, logger *logrus.Logger) error {
	routes := services.DefaultRoutes()
	if err := routes.Apply(args.routes); err != nil {
		return err
	}

	printer, err := output.NewPrinter(os.Stdout, args.query)
	if err != nil {
		return err
	}

	if args.metricsPort > 0 {
		srv := metrics.NewServer(args.metricsBind, args.metricsPort)
		logger.Infof("metrics server listening on: %v", srv.Addr)

		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("metrics server error: %v", err)
			}
		}()
	}

	source := buildTokenSource(args, logger)

	httpClient, err := api.NewClient(args.apiURL, source, logger.WithField("module", "api"))
	if err != nil {
		return err
	}

	httpClient.SetHeader()

	channels := []types.Channel{services.NewRESTChannel(httpClient)}

	var state *qewd.State

	if needsQEWD(routes, command, args.feed) {
		transport := qewd.NewWebSocketTransport(logger.WithField("module", "qewd"))
		transport.ReconnectDelay = args.reconnectDelay

		defer transport.Close()

		if command == "watch" {
			watchLifecycle(transport, logger)
		}

		qewdClient := qewd.NewClient(transport, &qewd.Config{
			Application:  args.application,
			URL:          args.qewdURL,
			ReplyTimeout: args.replyTimeout,
		}, logger.WithField("module", "qewd"))

		state = qewd.NewState()
		qewdClient.Init(state)

		if command != "watch" {
			waitCtx, waitCancel := context.WithTimeout(ctx, args.connectTimeout)
			err := state.WaitReady(waitCtx)

			waitCancel()

			if err != nil {
				return fmt.Errorf("qewd backend at %s not ready: %w", args.qewdURL, err)
			}
		}

		channels = append(channels, services.NewQEWDChannel(qewdClient, source))
	}

	router := services.NewRouter(routes, logger.WithField("module", "router"), channels...)
	svc := services.New(router, state)

	if command == "watch" {
		<-ctx.Done()
		return nil
	}

	rsp, err := dispatch(ctx, svc, args, command, cmdArgs)
	if err != nil {
		return err
	}

	return printer.Print(rsp)
}

func watchLifecycle(transport qewd.Transport, logger logrus.FieldLogger) {
	for _, event := range []string{qewd.EventRegistered, qewd.EventReregistered, qewd.EventDisconnected} {
		event := event

		transport.On(event, func() {
			logger.WithField("event", event).Info("qewd lifecycle event")
		})
	}
}

func requireArgs(command string, cmdArgs []string, names ...string) error {
	if len(cmdArgs) < len(names) {
		return fmt.Errorf("%s requires arguments: %s", command, strings.Join(names, " "))
	}

	return nil
}

func parseParams(params []string) (map[string]interface{}, error) {
	if len(params) == 0 {
		return nil, nil
	}

	res := make(map[string]interface{}, len(params))

	for _, param := range params {
		parts := strings.SplitN(param, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid param: %s", param)
		}

		res[parts[0]] = parts[1]
	}

	return res, nil
}

func parseArticle(data string) (map[string]interface{}, error) {
	if data == "" {
		return nil, fmt.Errorf("article fields required (--data)")
	}

	article := map[string]interface{}{}
	if err := json.Unmarshal([]byte(data), &article); err != nil {
		return nil, fmt.Errorf("invalid --data: %w", err)
	}

	return article, nil
}

func dispatch(ctx context.Context, svc *services.Services, args *CliArgs, command string, cmdArgs []string) (*types.Response, error) {
	switch command {
	case "tags":
		return svc.Tags.Get(ctx)

	case "articles":
		params, err := parseParams(args.params)
		if err != nil {
			return nil, err
		}

		listType := "all"
		if args.feed {
			listType = services.ListFeed
		}

		return svc.Articles.Query(ctx, listType, params)

	case "article":
		if err := requireArgs(command, cmdArgs, "<slug>"); err != nil {
			return nil, err
		}

		return svc.Articles.Get(ctx, cmdArgs[0])

	case "create-article":
		article, err := parseArticle(args.data)
		if err != nil {
			return nil, err
		}

		return svc.Articles.Create(ctx, article)

	case "update-article":
		if err := requireArgs(command, cmdArgs, "<slug>"); err != nil {
			return nil, err
		}

		article, err := parseArticle(args.data)
		if err != nil {
			return nil, err
		}

		return svc.Articles.Update(ctx, cmdArgs[0], article)

	case "delete-article":
		if err := requireArgs(command, cmdArgs, "<slug>"); err != nil {
			return nil, err
		}

		return svc.Articles.Destroy(ctx, cmdArgs[0])

	case "comments":
		slug := ""
		if len(cmdArgs) > 0 {
			slug = cmdArgs[0]
		}

		return svc.Comments.Get(ctx, slug)

	case "comment":
		if err := requireArgs(command, cmdArgs, "<slug>", "<body>"); err != nil {
			return nil, err
		}

		return svc.Comments.Post(ctx, cmdArgs[0], strings.Join(cmdArgs[1:], " "))

	case "delete-comment":
		if err := requireArgs(command, cmdArgs, "<slug>", "<id>"); err != nil {
			return nil, err
		}

		return svc.Comments.Destroy(ctx, cmdArgs[0], cmdArgs[1])

	case "favorite":
		if err := requireArgs(command, cmdArgs, "<slug>"); err != nil {
			return nil, err
		}

		return svc.Favorites.Add(ctx, cmdArgs[0])

	case "unfavorite":
		if err := requireArgs(command, cmdArgs, "<slug>"); err != nil {
			return nil, err
		}

		return svc.Favorites.Remove(ctx, cmdArgs[0])
	}

	return nil, fmt.Errorf("unknown command: %s", command)
}
