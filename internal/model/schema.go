package model

// ColumnDescriptor describes one column of a table as rendered by the backend.
type ColumnDescriptor struct {
	Name          string `json:"name" yaml:"name"`
	Type          string `json:"type" yaml:"type"`
	DisplayType   string `json:"displayType" yaml:"displayType"`
	PrimaryKey    bool   `json:"primaryKey" yaml:"primaryKey"`
	Nullable      bool   `json:"nullable" yaml:"nullable"`
	AutoIncrement bool   `json:"autoIncrement" yaml:"autoIncrement"`
	Comment       string `json:"comment" yaml:"comment"`
}

// ForeignKeyDescriptor holds a relationship line exactly as described.
type ForeignKeyDescriptor struct {
	RelationshipDescription string `json:"relationshipDescription" yaml:"relationshipDescription"`
}

// TableDescriptor describes one table.
type TableDescriptor struct {
	Name        string                 `json:"name" yaml:"name"`
	Comment     string                 `json:"comment" yaml:"comment"`
	Columns     []ColumnDescriptor     `json:"columns" yaml:"columns"`
	ForeignKeys []ForeignKeyDescriptor `json:"foreignKeys" yaml:"foreignKeys"`
}

// NewTableDescriptor opens an empty table with the given name.
func NewTableDescriptor(name string) *TableDescriptor {
	return &TableDescriptor{
		Name:        name,
		Columns:     []ColumnDescriptor{},
		ForeignKeys: []ForeignKeyDescriptor{},
	}
}

// SchemaModel is the parsed schema of the active data source.
//
// TotalColumns is kept as a running count by AddTable and AddColumn and
// always equals the sum of the column counts of Tables. Callers must not
// append to Tables or to a table's Columns directly.
type SchemaModel struct {
	DatabaseName string            `json:"databaseName,omitempty" yaml:"databaseName,omitempty"`
	Tables       []TableDescriptor `json:"tables" yaml:"tables"`
	TotalColumns int               `json:"totalColumns" yaml:"totalColumns"`
}

// NewSchemaModel returns an empty schema.
func NewSchemaModel() *SchemaModel {
	return &SchemaModel{Tables: []TableDescriptor{}}
}

// AddTable appends a finished table and counts its columns.
func (s *SchemaModel) AddTable(table TableDescriptor) {
	s.Tables = append(s.Tables, table)
	s.TotalColumns += len(table.Columns)
}

// AddColumn appends a column to an in-progress table and counts it.
// A table built this way is appended with Flush, not AddTable.
func (s *SchemaModel) AddColumn(table *TableDescriptor, column ColumnDescriptor) {
	table.Columns = append(table.Columns, column)
	s.TotalColumns++
}

// Flush appends an in-progress table built with AddColumn.
func (s *SchemaModel) Flush(table *TableDescriptor) {
	if table == nil {
		return
	}
	s.Tables = append(s.Tables, *table)
}

// IsEmpty reports whether the schema holds no tables.
func (s *SchemaModel) IsEmpty() bool {
	return s == nil || len(s.Tables) == 0
}

// Table looks a table up by name.
func (s *SchemaModel) Table(name string) (*TableDescriptor, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}
