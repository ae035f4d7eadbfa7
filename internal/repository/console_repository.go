package repository

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"text2sql-console/internal/model"
)

type consoleRepository struct {
	client *BackendClient
}

// NewConsoleRepository creates a new instance of ConsoleRepository
func NewConsoleRepository(client *BackendClient) ConsoleRepository {
	return &consoleRepository{client: client}
}

// ServerInfo probes the backend. Any 2xx answer counts as reachable; the
// body is decoded on a best-effort basis.
func (r *consoleRepository) ServerInfo(ctx context.Context) (*model.ServerInfo, error) {
	body, err := r.client.getJSON(ctx, "server-info", r.client.apiPath("/server-info"))
	if err != nil {
		return nil, err
	}

	var info model.ServerInfo
	_ = json.Unmarshal(body, &info)
	return &info, nil
}

// FetchSchema retrieves the schema of a data source, or the backend's
// default schema description when no data source is given.
func (r *consoleRepository) FetchSchema(ctx context.Context, dataSourceID string) (SchemaPayload, error) {
	var (
		body []byte
		err  error
	)
	if dataSourceID != "" {
		body, err = r.client.getJSON(ctx, "datasource-schema", r.client.dataSourcePath("/%s/schema", url.PathEscape(dataSourceID)))
	} else {
		body, err = r.client.getJSON(ctx, "database-schema", r.client.apiPath("/database-schema"))
	}
	if err != nil {
		return nil, err
	}
	return decodeSchemaPayload(body)
}

// GenerateSQL posts a question to the text-to-SQL endpoint
func (r *consoleRepository) GenerateSQL(ctx context.Context, req model.Text2SQLRequest) (string, error) {
	body, err := r.client.postJSON(ctx, "text2sql", r.client.apiPath("/text2sql"), req)
	if err != nil {
		return "", err
	}
	return textOf(body)
}

// ExecuteSQL runs a statement on the active data source
func (r *consoleRepository) ExecuteSQL(ctx context.Context, sql string) (string, error) {
	body, err := r.client.postJSON(ctx, "execute-sql", r.client.apiPath("/execute-sql"), model.ExecuteSQLRequest{SQL: sql})
	if err != nil {
		return "", err
	}
	return textOf(body)
}

// QueryAndExecute generates and runs a statement in one call. The backend
// takes this one as a form.
func (r *consoleRepository) QueryAndExecute(ctx context.Context, query string) (string, error) {
	form := url.Values{"query": {query}}
	body, err := r.client.postForm(ctx, "query-and-execute", r.client.apiPath("/text2sql/query-and-execute"), form)
	if err != nil {
		return "", err
	}
	return textOf(body)
}

// ExplainSQL asks the backend to describe a statement
func (r *consoleRepository) ExplainSQL(ctx context.Context, req model.ExplainSQLRequest) (string, error) {
	body, err := r.client.postJSON(ctx, "explain-sql", r.client.apiPath("/explain-sql"), req)
	if err != nil {
		return "", err
	}
	return textOf(body)
}

// SubmitFeedback posts a correctness signal. Optional fields are only sent
// when set.
func (r *consoleRepository) SubmitFeedback(ctx context.Context, feedback model.Feedback) (string, error) {
	form := url.Values{
		"userQuery":    {feedback.UserQuery},
		"generatedSql": {feedback.GeneratedSQL},
		"isCorrect":    {strconv.FormatBool(feedback.IsCorrect)},
	}
	if feedback.CorrectedSQL != "" {
		form.Set("correctedSql", feedback.CorrectedSQL)
	}
	if feedback.Description != "" {
		form.Set("description", feedback.Description)
	}

	body, err := r.client.postForm(ctx, "user-feedback", r.client.apiPath("/user-feedback"), form)
	if err != nil {
		return "", err
	}

	if text, ok := payloadText(body); ok {
		return text, nil
	}
	return envelopeMessage(body), nil
}

// textOf extracts the text payload of an accepted answer
func textOf(body []byte) (string, error) {
	text, ok := payloadText(body)
	if !ok {
		return "", ErrMalformedPayload
	}
	return text, nil
}
