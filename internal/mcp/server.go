package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"text2sql-console/internal/parser"
	"text2sql-console/internal/service"
)

// Server exposes one console session as MCP tools, so an assistant can
// drive the text-to-SQL backend the same way the browser console does.
type Server struct {
	session     *service.Session
	dataSources service.DataSourceService
	logger      *zap.Logger
	server      *server.MCPServer
}

// NewServer wraps session. The caller owns the session and closes it.
func NewServer(session *service.Session, dataSources service.DataSourceService, version string, logger *zap.Logger) *Server {
	s := &Server{
		session:     session,
		dataSources: dataSources,
		logger:      logger,
		server:      server.NewMCPServer("sqlconsole", version),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.server.AddTool(mcp.NewTool("check_connection",
		mcp.WithDescription("Check that the text-to-SQL backend and its database are reachable, loading the schema on first success")),
		s.handleCheckConnection)

	s.server.AddTool(mcp.NewTool("list_data_sources",
		mcp.WithDescription("List the data source profiles configured in the backend")),
		s.handleListDataSources)

	s.server.AddTool(mcp.NewTool("switch_data_source",
		mcp.WithDescription("Point the session at another data source profile and reload its schema"),
		mcp.WithString("datasource_id", mcp.Required(), mcp.Description("The ID of the data source profile"))),
		s.handleSwitchDataSource)

	s.server.AddTool(mcp.NewTool("describe_schema",
		mcp.WithDescription("Load and return the tables and columns of the current database"),
		mcp.WithString("table", mcp.Description("Only return this table"))),
		s.handleDescribeSchema)

	s.server.AddTool(mcp.NewTool("generate_sql",
		mcp.WithDescription("Turn a natural-language question into SQL without running it"),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer"))),
		s.handleGenerateSQL)

	s.server.AddTool(mcp.NewTool("query_and_execute",
		mcp.WithDescription("Turn a natural-language question into SQL, run it and return the result table"),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer"))),
		s.handleQueryAndExecute)

	s.server.AddTool(mcp.NewTool("explain_sql",
		mcp.WithDescription("Explain what a SQL statement does; defaults to the last generated SQL"),
		mcp.WithString("sql", mcp.Description("The statement to explain"))),
		s.handleExplainSQL)

	s.server.AddTool(mcp.NewTool("parse_response",
		mcp.WithDescription("Parse a raw backend response text offline"),
		mcp.WithString("kind", mcp.Required(), mcp.Description("One of: "+strings.Join(parser.Kinds, ", "))),
		mcp.WithString("text", mcp.Required(), mcp.Description("The response text"))),
		s.handleParseResponse)
}

func (s *Server) handleCheckConnection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.session.CheckConnection(ctx); err != nil {
		return nil, fmt.Errorf("failed to check connection: %w", err)
	}

	state := s.session.Snapshot()
	return jsonResult(map[string]any{
		"connected":     state.IsConnected(),
		"connection":    state.Connection,
		"database":      state.DatabaseName,
		"message":       state.ConnectionMessage,
		"schema_loaded": !state.Schema.IsEmpty(),
		"datasource_id": state.ActiveDataSourceID,
		"notice":        state.Notice,
	})
}

func (s *Server) handleListDataSources(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profiles, err := s.dataSources.ListDataSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}

	// Credentials stay out of tool output.
	result := make([]map[string]any, 0, len(profiles))
	for _, p := range profiles {
		result = append(result, map[string]any{
			"id":       p.ID,
			"name":     p.Name,
			"type":     p.Type,
			"host":     p.Host,
			"port":     p.Port,
			"database": p.Database,
			"active":   p.Active,
			"status":   p.Status,
		})
	}

	return jsonResult(map[string]any{
		"data_sources": result,
		"count":        len(result),
	})
}

func (s *Server) handleSwitchDataSource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcp.ParseString(request, "datasource_id", "")
	if id == "" {
		return mcp.NewToolResultError("datasource_id is required"), nil
	}

	if err := s.session.SwitchDataSource(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to switch data source: %w", err)
	}

	state := s.session.Snapshot()
	return jsonResult(map[string]any{
		"datasource_id": state.ActiveDataSourceID,
		"connected":     state.IsConnected(),
		"database":      state.DatabaseName,
		"tables":        tableNames(state),
	})
}

func (s *Server) handleDescribeSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.session.LoadSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	schema := s.session.Snapshot().Schema
	if name := mcp.ParseString(request, "table", ""); name != "" {
		table, ok := schema.Table(name)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("table %q not found", name)), nil
		}
		return jsonResult(table)
	}
	return jsonResult(schema)
}

func (s *Server) handleGenerateSQL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question := mcp.ParseString(request, "question", "")
	if err := s.session.ConvertToSQL(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to generate SQL: %w", err)
	}

	state := s.session.Snapshot()
	return jsonResult(map[string]any{
		"sql":         state.GeneratedSQL,
		"explanation": state.Explanation,
		"notice":      state.Notice,
	})
}

func (s *Server) handleQueryAndExecute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question := mcp.ParseString(request, "question", "")
	if err := s.session.QueryAndExecute(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}

	state := s.session.Snapshot()
	return jsonResult(map[string]any{
		"sql":         state.GeneratedSQL,
		"explanation": state.Explanation,
		"results":     state.Results,
		"notice":      state.Notice,
	})
}

func (s *Server) handleExplainSQL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	explanation, err := s.session.ExplainSQL(ctx, mcp.ParseString(request, "sql", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to explain SQL: %w", err)
	}
	return mcp.NewToolResultText(explanation), nil
}

func (s *Server) handleParseResponse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := mcp.ParseString(request, "kind", "")
	result, ok := parser.Run(kind, mcp.ParseString(request, "text", ""))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q, expected one of: %s", kind, strings.Join(parser.Kinds, ", "))), nil
	}
	return jsonResult(result)
}

func tableNames(state service.SessionState) []string {
	if state.Schema.IsEmpty() {
		return []string{}
	}
	names := make([]string, 0, len(state.Schema.Tables))
	for _, t := range state.Schema.Tables {
		names = append(names, t.Name)
	}
	return names
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// ServeStdio serves the tools over stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("Serving MCP tools on stdio", zap.String("session", s.session.ID()))
	return server.ServeStdio(s.server)
}
