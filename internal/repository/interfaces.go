package repository

import (
	"context"

	"text2sql-console/internal/model"
)

// ConsoleRepository defines the text-to-SQL operations of the backend.
// Text payloads are returned raw; parsing them is up to the caller.
type ConsoleRepository interface {
	// ServerInfo probes the backend itself
	ServerInfo(ctx context.Context) (*model.ServerInfo, error)

	// FetchSchema retrieves the schema of a data source, or of the
	// backend's default database when dataSourceID is empty
	FetchSchema(ctx context.Context, dataSourceID string) (SchemaPayload, error)

	// GenerateSQL turns a question into a text-to-SQL response body
	GenerateSQL(ctx context.Context, req model.Text2SQLRequest) (string, error)

	// ExecuteSQL runs a statement and returns the execution response body
	ExecuteSQL(ctx context.Context, sql string) (string, error)

	// QueryAndExecute generates and runs a statement in one call
	QueryAndExecute(ctx context.Context, query string) (string, error)

	// ExplainSQL describes a statement in natural language
	ExplainSQL(ctx context.Context, req model.ExplainSQLRequest) (string, error)

	// SubmitFeedback records whether a generated statement was right and
	// returns the backend's acknowledgement
	SubmitFeedback(ctx context.Context, feedback model.Feedback) (string, error)
}

// DataSourceRepository defines the interface for data source profile operations
type DataSourceRepository interface {
	// List retrieves all profiles
	List(ctx context.Context) ([]*model.DataSourceProfile, error)

	// Get retrieves a profile by its id
	Get(ctx context.Context, id string) (*model.DataSourceProfile, error)

	// Create stores a new profile and returns its id
	Create(ctx context.Context, profile *model.DataSourceProfile) (string, error)

	// Update replaces an existing profile
	Update(ctx context.Context, profile *model.DataSourceProfile) error

	// Delete removes a profile
	Delete(ctx context.Context, id string) error

	// Test tries a connection with an unsaved profile
	Test(ctx context.Context, profile *model.DataSourceProfile) (*model.ConnectionTestResult, error)

	// Activate switches a profile on or off
	Activate(ctx context.Context, id string, active bool) error

	// Status reports whether a profile's connection is up
	Status(ctx context.Context, id string) (*model.ConnectionStatus, error)

	// Stats returns the backend's data source statistics
	Stats(ctx context.Context) (map[string]any, error)
}
