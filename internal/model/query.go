package model

// SqlExtraction is the generated statement and its explanation as cut out
// of a text-to-SQL response. Both fields are trimmed; a missing section
// leaves its field empty.
type SqlExtraction struct {
	SQL         string `json:"sql" yaml:"sql"`
	Explanation string `json:"explanation" yaml:"explanation"`
}

// ResultSet is a result table parsed from an execution response.
//
// Every row has exactly len(Columns) cells; a nil cell is SQL NULL.
// TotalRows comes from the stats line and may exceed len(Rows).
type ResultSet struct {
	Columns         []string    `json:"columns" yaml:"columns"`
	Rows            [][]*string `json:"rows" yaml:"rows"`
	TotalRows       int         `json:"totalRows" yaml:"totalRows"`
	ExecutionTimeMs int64       `json:"executionTimeMs" yaml:"executionTimeMs"`
	Truncated       bool        `json:"truncated" yaml:"truncated"`
}

// CombinedResult is the outcome of a generate-and-execute response.
// Results is nil when the response held no result table.
type CombinedResult struct {
	SqlExtraction `yaml:",inline"`
	Results       *ResultSet `json:"results" yaml:"results"`
}

// Text2SQLRequest is the JSON body of a text-to-SQL call.
type Text2SQLRequest struct {
	Prompt       string `json:"prompt" validate:"required"`
	Context      string `json:"context"`
	DataSourceID string `json:"dataSourceId,omitempty"`
}

// ExecuteSQLRequest is the JSON body of an execute call.
type ExecuteSQLRequest struct {
	SQL string `json:"sql" validate:"required"`
}

// ExplainSQLRequest is the JSON body of an explain call.
type ExplainSQLRequest struct {
	SQL     string `json:"sql" validate:"required"`
	Context string `json:"context"`
}

// Feedback is a correctness signal on a generated statement.
type Feedback struct {
	UserQuery    string `json:"userQuery" validate:"required"`
	GeneratedSQL string `json:"generatedSql" validate:"required"`
	IsCorrect    bool   `json:"isCorrect"`
	CorrectedSQL string `json:"correctedSql,omitempty"`
	Description  string `json:"description,omitempty"`
}

// ServerInfo is what the backend reports about itself.
type ServerInfo struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Message string `json:"message,omitempty"`
}

// ExampleQueries are canned questions offered to new users.
var ExampleQueries = []string{
	"查询所有用户信息",
	"统计订单总数",
	"查找今天注册的用户",
	"按月份统计销售额",
	"查询最受欢迎的商品",
	"找出活跃用户数量",
	"统计各类别商品数量",
	"查询本月新增客户",
}
