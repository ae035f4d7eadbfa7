package parser

import (
	"regexp"
	"strings"

	"text2sql-console/internal/model"
)

var (
	// - `name` TYPE PHRASE [flags] - comment
	backtickColumnPattern = regexp.MustCompile("^- `([^`]+)` ([^\\[]+)")

	// - name (TYPE) [flags] - comment; the type may itself hold parentheses.
	parenColumnPattern = regexp.MustCompile(`^-\s+([^\s(]+)\s*\((.+?)\)(?:\s|$)`)

	columnCommentPattern = regexp.MustCompile(` - (.+)$`)
)

const (
	flagPrimaryKey    = "[主键]"
	flagNotNull       = "[非空]"
	flagAutoIncrement = "[自增]"
)

// ParseColumn parses one column line of a schema description. It returns
// nil when the line has neither the backtick form nor the parenthesized form.
func ParseColumn(line string) *model.ColumnDescriptor {
	line = strings.TrimSpace(line)

	name, typePhrase, ok := matchColumn(line)
	if !ok {
		return nil
	}

	column := &model.ColumnDescriptor{
		Name:          name,
		DisplayType:   typePhrase,
		PrimaryKey:    strings.Contains(line, flagPrimaryKey),
		Nullable:      !strings.Contains(line, flagNotNull),
		AutoIncrement: strings.Contains(line, flagAutoIncrement),
	}
	if fields := strings.Fields(typePhrase); len(fields) > 0 {
		column.Type = fields[0]
	}
	if match := columnCommentPattern.FindStringSubmatch(line); match != nil {
		column.Comment = match[1]
	}

	return column
}

func matchColumn(line string) (name, typePhrase string, ok bool) {
	if match := backtickColumnPattern.FindStringSubmatch(line); match != nil {
		return match[1], strings.TrimSpace(match[2]), true
	}
	if match := parenColumnPattern.FindStringSubmatch(line); match != nil {
		return match[1], strings.TrimSpace(match[2]), true
	}
	return "", "", false
}
