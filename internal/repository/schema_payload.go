package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"text2sql-console/internal/model"
	"text2sql-console/internal/parser"
)

// SchemaPayload is one of the accepted shapes of a schema response:
// TablesPayload, NestedTablesPayload or ContentPayload. The set is closed;
// every shape knows how to normalize itself.
type SchemaPayload interface {
	Shape() string
	Normalize() *model.SchemaModel

	sealed()
}

// schemaDocument is the structured schema the data source API returns.
type schemaDocument struct {
	DatabaseName string          `json:"databaseName"`
	Tables       []tableDocument `json:"tables"`
}

type tableDocument struct {
	Name        string               `json:"name"`
	Comment     string               `json:"comment"`
	Columns     []columnDocument     `json:"columns"`
	ForeignKeys []foreignKeyDocument `json:"foreignKeys"`
}

type columnDocument struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primaryKey"`
	Comment    string `json:"comment"`
}

type foreignKeyDocument struct {
	ColumnName       string `json:"columnName"`
	ReferencedTable  string `json:"referencedTable"`
	ReferencedColumn string `json:"referencedColumn"`
}

// TablesPayload is {"tables": [...]} at the top level.
type TablesPayload struct {
	document schemaDocument
}

// NestedTablesPayload is {"success": true, "data": {"tables": [...]}}.
type NestedTablesPayload struct {
	document schemaDocument
}

// ContentPayload is a schema description in text form under content, data
// or result.
type ContentPayload struct {
	Description string
}

func (TablesPayload) Shape() string       { return "tables" }
func (NestedTablesPayload) Shape() string { return "data.tables" }
func (ContentPayload) Shape() string      { return "content" }

func (TablesPayload) sealed()       {}
func (NestedTablesPayload) sealed() {}
func (ContentPayload) sealed()      {}

func (p TablesPayload) Normalize() *model.SchemaModel       { return p.document.normalize() }
func (p NestedTablesPayload) Normalize() *model.SchemaModel { return p.document.normalize() }

func (p ContentPayload) Normalize() *model.SchemaModel {
	return parser.ParseSchema(p.Description)
}

func (d schemaDocument) normalize() *model.SchemaModel {
	schema := model.NewSchemaModel()
	schema.DatabaseName = d.DatabaseName

	for _, t := range d.Tables {
		table := model.NewTableDescriptor(t.Name)
		table.Comment = t.Comment
		for _, c := range t.Columns {
			schema.AddColumn(table, columnDescriptor(c))
		}
		for _, fk := range t.ForeignKeys {
			table.ForeignKeys = append(table.ForeignKeys, model.ForeignKeyDescriptor{
				RelationshipDescription: fmt.Sprintf("%s -> %s.%s", fk.ColumnName, fk.ReferencedTable, fk.ReferencedColumn),
			})
		}
		schema.Flush(table)
	}

	return schema
}

func columnDescriptor(c columnDocument) model.ColumnDescriptor {
	column := model.ColumnDescriptor{
		Name:        c.Name,
		DisplayType: strings.TrimSpace(c.Type),
		PrimaryKey:  c.PrimaryKey,
		Nullable:    c.Nullable,
		Comment:     c.Comment,
	}
	if fields := strings.Fields(c.Type); len(fields) > 0 {
		column.Type = fields[0]
	}
	return column
}

// decodeSchemaPayload sniffs the shape of a schema response body. Shapes
// are tried in a fixed order: top-level tables, nested data.tables, then a
// text payload.
func decodeSchemaPayload(body []byte) (SchemaPayload, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformedPayload
	}

	if tables := gjson.GetBytes(body, "tables"); tables.IsArray() {
		var doc schemaDocument
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return TablesPayload{document: doc}, nil
	}

	if tables := gjson.GetBytes(body, "data.tables"); tables.IsArray() {
		var doc schemaDocument
		if err := json.Unmarshal([]byte(gjson.GetBytes(body, "data").Raw), &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return NestedTablesPayload{document: doc}, nil
	}

	if text, ok := payloadText(body); ok {
		return ContentPayload{Description: text}, nil
	}

	return nil, ErrMalformedPayload
}
