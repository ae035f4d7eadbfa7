package main

import (
	"github.com/spf13/cobra"

	"text2sql-console/internal/config"
	"text2sql-console/internal/logging"
	"text2sql-console/internal/mcp"
	"text2sql-console/internal/repository"
	"text2sql-console/internal/service"
	"text2sql-console/internal/utils"
)

func newMCPCommand(root *rootOptions) *cobra.Command {
	var dataSourceID string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the console as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithFlags(root.configPath, cmd.Flags())
			if err != nil {
				return err
			}

			// stdout carries the protocol, so logs go to stderr as JSON.
			logger, err := logging.New(config.LoggingConfig{Level: cfg.Logging.Level, Format: "json"})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client, err := repository.NewBackendClient(cfg.Backend, logger.Named("backend"))
			if err != nil {
				return err
			}
			dataSources := repository.NewDataSourceRepository(client)

			session := service.NewSession(
				utils.GenerateSessionID(),
				repository.NewConsoleRepository(client),
				dataSources,
				service.SessionOptions{FeedbackResetDelay: cfg.Session.FeedbackResetDelay},
				logger.Named("session"),
			)
			defer session.Close()

			if dataSourceID != "" {
				if err := session.SwitchDataSource(cmd.Context(), dataSourceID); err != nil {
					return describe(err)
				}
			}

			server := mcp.NewServer(session, service.NewDataSourceService(dataSources, logger.Named("datasource")), version, logger.Named("mcp"))
			return server.ServeStdio()
		},
	}

	cmd.Flags().StringVar(&dataSourceID, "datasource", "", "data source profile id to start on")
	return cmd
}
