package parser

import (
	"strings"

	"text2sql-console/internal/model"
)

// ParseSchema parses a schema description into a SchemaModel. Tables and
// columns keep their input order. Empty input yields an empty schema.
//
// Two renderings are understood: the Markdown one ("### orders",
// "**说明**: ...", "- `id` INT [主键]") and the plain one the backend's
// schema tool emits ("表名: orders", "说明: ...", "  - id (INT) [主键]").
func ParseSchema(description string) *model.SchemaModel {
	schema := model.NewSchemaModel()
	if strings.TrimSpace(description) == "" {
		return schema
	}

	lines := splitLines(description)
	var current *model.TableDescriptor

	for i, raw := range lines {
		line := strings.TrimSpace(raw)

		if name, ok := tableHeader(line); ok {
			schema.Flush(current)
			current = model.NewTableDescriptor(name)
			continue
		}

		if name, ok := cutPrefix(line, plainDatabaseName); ok {
			schema.DatabaseName = name
			continue
		}

		if current == nil {
			continue
		}

		if comment, ok := tableComment(line); ok {
			current.Comment = comment
			continue
		}

		if isColumnLine(raw, line) {
			if column := ParseColumn(line); column != nil {
				schema.AddColumn(current, *column)
				continue
			}
		}

		if strings.HasPrefix(line, listItemPrefix) && i > 0 && strings.Contains(lines[i-1], relationshipLabel) {
			current.ForeignKeys = append(current.ForeignKeys, model.ForeignKeyDescriptor{
				RelationshipDescription: line[len(listItemPrefix):],
			})
		}
	}

	schema.Flush(current)
	return schema
}

func tableHeader(line string) (string, bool) {
	if strings.HasPrefix(line, markdownTableHeader) {
		return strings.TrimSpace(line[len(markdownTableHeader):]), true
	}
	return cutPrefix(line, plainTableHeader)
}

func tableComment(line string) (string, bool) {
	if comment, ok := cutPrefix(line, markdownComment); ok {
		return comment, true
	}
	return cutPrefix(line, plainComment)
}

// isColumnLine recognises the leading marker of a column line: a backtick
// item in the Markdown form, a two-space indented item in the plain form.
func isColumnLine(raw, trimmed string) bool {
	return strings.HasPrefix(trimmed, markdownColumnPrefix) || strings.HasPrefix(raw, plainColumnIndent)
}

func cutPrefix(line, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
