package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/run"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"text2sql-console/internal/config"
	"text2sql-console/internal/controller"
	"text2sql-console/internal/logging"
	"text2sql-console/internal/middleware"
	"text2sql-console/internal/repository"
	"text2sql-console/internal/service"
)

var version = "dev"

type rootOptions struct {
	configPath string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "sqlconsole",
		Short: "Natural-language SQL console in front of a text-to-SQL backend",
		Long: `sqlconsole keeps console sessions against a text-to-SQL backend: it checks
the connection, loads the schema, turns questions into SQL, runs it and parses
the Markdown answers into tables.

Examples:
  sqlconsole serve --backend http://localhost:8080 --port 8090
  sqlconsole ask "统计订单总数" --datasource ds-1a2b3c4d
  sqlconsole parse results response.txt -o yaml
  sqlconsole mcp --datasource ds-1a2b3c4d`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is ./configs/config.yaml)")
	root.PersistentFlags().String("backend", "", "text-to-SQL backend base URL")
	root.PersistentFlags().String("port", "", "gateway listen port")

	root.AddCommand(
		newServeCommand(opts),
		newAskCommand(opts),
		newParseCommand(),
		newMCPCommand(opts),
	)
	return root
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the console gateway (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.LoadWithFlags(opts.configPath, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.InitMetrics()

	client, err := repository.NewBackendClient(cfg.Backend, logger.Named("backend"))
	if err != nil {
		return err
	}
	console := repository.NewConsoleRepository(client)
	dataSources := repository.NewDataSourceRepository(client)

	store := service.NewSessionStore(cfg.Session, console, dataSources, logger.Named("session"))
	dataSourceService := service.NewDataSourceService(dataSources, logger.Named("datasource"))

	var limiter *middleware.RateLimiter
	if cfg.Security.EnableRateLimit {
		limiter = middleware.NewRateLimiter(middleware.RateLimiterConfigFrom(cfg.Security))
		defer limiter.Stop()
	}

	router := controller.NewRouter(controller.Dependencies{
		Config:      cfg,
		Logger:      logger.Named("http"),
		Console:     console,
		Sessions:    store,
		DataSources: dataSourceService,
		RateLimiter: limiter,
		Version:     version,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var g run.Group
	{
		g.Add(func() error {
			logger.Info("Starting server",
				zap.String("addr", server.Addr),
				zap.String("backend", cfg.Backend.BaseURL),
				zap.String("version", version))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Warn("Server shutdown incomplete", zap.Error(err))
			}
		})
	}
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			store.Start(ctx)
			return nil
		}, func(error) {
			cancel()
			store.Stop()
		})
	}
	g.Add(run.SignalHandler(context.Background(), os.Interrupt, syscall.SIGTERM))

	err = g.Run()
	var signalErr run.SignalError
	if errors.As(err, &signalErr) {
		logger.Info("Shutting down", zap.Stringer("signal", signalErr.Signal))
		return nil
	}
	return err
}
