package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"text2sql-console/internal/config"
	"text2sql-console/internal/logging"
	"text2sql-console/internal/model"
	"text2sql-console/internal/parser"
	"text2sql-console/internal/repository"
	"text2sql-console/internal/service"
	"text2sql-console/internal/utils"
)

type askOptions struct {
	dataSourceID string
	execute      bool
	showSchema   bool
}

func newAskCommand(root *rootOptions) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the SQL, its explanation and the result table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithFlags(root.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return runAsk(cmd, cfg, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&opts.dataSourceID, "datasource", "", "data source profile id (default is the backend's own connection)")
	cmd.Flags().BoolVar(&opts.execute, "execute", true, "run the generated SQL and print the results")
	cmd.Flags().BoolVar(&opts.showSchema, "schema", false, "print the loaded schema before answering")
	return cmd
}

func runAsk(cmd *cobra.Command, cfg *config.Config, opts *askOptions, question string) error {
	// Terminal output belongs to the answer; only problems are logged.
	logger, err := logging.New(config.LoggingConfig{Level: "warn", Format: "console"})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := repository.NewBackendClient(cfg.Backend, logger)
	if err != nil {
		return err
	}

	session := service.NewSession(
		utils.GenerateSessionID(),
		repository.NewConsoleRepository(client),
		repository.NewDataSourceRepository(client),
		service.SessionOptions{FeedbackResetDelay: cfg.Session.FeedbackResetDelay},
		logger,
	)
	defer session.Close()

	ctx := cmd.Context()
	if opts.dataSourceID != "" {
		err = session.SwitchDataSource(ctx, opts.dataSourceID)
	} else {
		err = session.CheckConnection(ctx)
	}
	if err != nil {
		return describe(err)
	}

	out := cmd.OutOrStdout()
	state := session.Snapshot()
	if opts.showSchema {
		printSchema(out, state.Schema)
	}

	if opts.execute {
		err = session.QueryAndExecute(ctx, question)
	} else {
		err = session.ConvertToSQL(ctx, question)
	}
	if err != nil {
		return describe(err)
	}

	printAnswer(out, session.Snapshot())
	return nil
}

// describe puts the backend's own message in front of the error code
func describe(err error) error {
	if appErr, ok := utils.AsAppError(err); ok {
		return fmt.Errorf("%s (%s)", appErr.Message, appErr.Code)
	}
	return err
}

func printAnswer(w io.Writer, state service.SessionState) {
	if state.DatabaseName != "" {
		fmt.Fprintf(w, "Database: %s\n\n", state.DatabaseName)
	}

	fmt.Fprintln(w, "SQL:")
	if state.GeneratedSQL == "" {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, line := range strings.Split(state.GeneratedSQL, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}

	if state.Explanation != "" {
		fmt.Fprintln(w, "\nExplanation:")
		for _, line := range strings.Split(state.Explanation, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}

	if state.Results != nil {
		fmt.Fprintln(w)
		printResults(w, state.Results)
	}
	if state.Notice != "" {
		fmt.Fprintf(w, "\n%s\n", state.Notice)
	}
}

func printResults(w io.Writer, results *model.ResultSet) {
	if len(results.Columns) == 0 {
		fmt.Fprintf(w, "No rows (%d ms)\n", results.ExecutionTimeMs)
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(results.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, row := range results.Rows {
		table.Append(parser.FormatRow(row))
	}
	caption := fmt.Sprintf("%d rows, %d ms", results.TotalRows, results.ExecutionTimeMs)
	if results.Truncated {
		caption += fmt.Sprintf(", showing %d", len(results.Rows))
	}
	table.SetCaption(true, caption)
	table.Render()
}

func printSchema(w io.Writer, schema *model.SchemaModel) {
	if schema.IsEmpty() {
		fmt.Fprintln(w, "Schema: (empty)")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Table", "Column", "Type", "Key", "Nullable", "Comment"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoMergeCells(true)
	for _, t := range schema.Tables {
		for _, column := range t.Columns {
			key := ""
			if column.PrimaryKey {
				key = "PK"
			}
			table.Append([]string{t.Name, column.Name, column.DisplayType, key, yesNo(column.Nullable), column.Comment})
		}
	}
	table.SetCaption(true, fmt.Sprintf("%d tables, %d columns", len(schema.Tables), schema.TotalColumns))
	table.Render()
	fmt.Fprintln(w)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
