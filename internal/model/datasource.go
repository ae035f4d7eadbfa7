package model

type DatabaseType string

const (
	DatabaseTypeMySQL      DatabaseType = "mysql"
	DatabaseTypePostgreSQL DatabaseType = "postgresql"
	DatabaseTypeOracle     DatabaseType = "oracle"
	DatabaseTypeH2         DatabaseType = "h2"
)

// DataSourceStatus is the connection status the backend reports for a profile.
type DataSourceStatus string

const (
	DataSourceStatusActive            DataSourceStatus = "ACTIVE"
	DataSourceStatusInactive          DataSourceStatus = "INACTIVE"
	DataSourceStatusFailed            DataSourceStatus = "FAILED"
	DataSourceStatusPendingConnection DataSourceStatus = "PENDING_CONNECTION"
)

// Profile defaults applied when a field is left at its zero value.
const (
	DefaultMinimumIdle       = 5
	DefaultMaximumPoolSize   = 20
	DefaultConnectionTimeout = 30000 // milliseconds
)

// DataSourceProfile is a named connection configuration owned by the backend.
// The console only holds a local copy for editing and passes it through.
type DataSourceProfile struct {
	ID                string           `json:"id,omitempty"`
	Name              string           `json:"name" validate:"required,max=255"`
	Type              DatabaseType     `json:"type" validate:"required,oneof=mysql postgresql oracle h2"`
	Host              string           `json:"host" validate:"required"`
	Port              int              `json:"port" validate:"omitempty,min=1,max=65535"`
	Database          string           `json:"database" validate:"required"`
	Username          string           `json:"username" validate:"required"`
	Password          *string          `json:"password,omitempty" validate:"required"`
	MinimumIdle       int              `json:"minimumIdle" validate:"omitempty,min=0"`
	MaximumPoolSize   int              `json:"maximumPoolSize" validate:"omitempty,min=1"`
	ConnectionTimeout int64            `json:"connectionTimeout" validate:"omitempty,min=0"` // milliseconds
	SSLEnabled        bool             `json:"sslEnabled"`
	Description       string           `json:"description,omitempty"`
	Active            bool             `json:"active"`
	IsDefault         bool             `json:"isDefault,omitempty"`
	CreatedBy         string           `json:"createdBy,omitempty"`
	CreatedAt         string           `json:"createdAt,omitempty"` // backend local time, passed through as is
	Status            DataSourceStatus `json:"status,omitempty"`
}

// ApplyDefaults fills pool settings left at zero with the backend defaults.
func (p *DataSourceProfile) ApplyDefaults() {
	if p.MinimumIdle == 0 {
		p.MinimumIdle = DefaultMinimumIdle
	}
	if p.MaximumPoolSize == 0 {
		p.MaximumPoolSize = DefaultMaximumPoolSize
	}
	if p.ConnectionTimeout == 0 {
		p.ConnectionTimeout = DefaultConnectionTimeout
	}
	if p.Port == 0 {
		p.Port = DefaultPort(p.Type)
	}
}

// DefaultPort returns the conventional port for a database type, or 0.
func DefaultPort(dbType DatabaseType) int {
	switch dbType {
	case DatabaseTypeMySQL:
		return 3306
	case DatabaseTypePostgreSQL:
		return 5432
	case DatabaseTypeOracle:
		return 1521
	case DatabaseTypeH2:
		return 9092
	default:
		return 0
	}
}

// IsValidDatabaseType checks if a database type is valid
func IsValidDatabaseType(dbType string) bool {
	switch DatabaseType(dbType) {
	case DatabaseTypeMySQL, DatabaseTypePostgreSQL, DatabaseTypeOracle, DatabaseTypeH2:
		return true
	default:
		return false
	}
}

// ConnectionStatus is the answer of a status or server-info probe.
type ConnectionStatus struct {
	Connected bool             `json:"connected"`
	Status    DataSourceStatus `json:"status,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// ConnectionTestResult is the outcome of testing an unsaved profile.
type ConnectionTestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
