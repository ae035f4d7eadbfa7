// Package parser turns the Markdown-like text bodies of the text-to-SQL
// backend into structured values. Every function here is pure and never
// fails: input it cannot understand yields an empty or nil result.
package parser

import (
	"regexp"
	"strings"
)

// Section labels and markers of the backend's response format.
const (
	labelGeneratedSQL      = "**生成的SQL语句:**"
	labelGeneratedSQLShort = "**生成的SQL:**"
	labelExplanation       = "**查询说明:**"
	labelExecutionResults  = "**执行结果:**"
	labelQueryStats        = "**查询统计:**"
	labelQueryResult       = "**查询结果:**"

	fenceSQL   = "```sql"
	fenceClose = "```"

	markerTruncated   = "结果已截断"
	markerRowEllipsis = "..."
	tableSeparator    = "---|"
	nullCell          = "NULL"
)

// Schema description markers, in both the Markdown and the plain backend form.
const (
	markdownTableHeader  = "### "
	markdownComment      = "**说明**:"
	markdownColumnPrefix = "- `"
	relationshipLabel    = "**关联关系**:"

	plainTableHeader  = "表名:"
	plainComment      = "说明:"
	plainDatabaseName = "数据库名:"
	plainColumnIndent = "  - "

	listItemPrefix = "- "
)

var currentDatabasePattern = regexp.MustCompile(`当前数据库:\s*(\w+)`)

// splitLines splits text on newlines and drops carriage returns.
func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

// ExtractDatabaseName pulls the database name out of a status message such
// as "连接正常，当前数据库: shop". It returns "" when none is mentioned.
func ExtractDatabaseName(message string) string {
	match := currentDatabasePattern.FindStringSubmatch(message)
	if match == nil {
		return ""
	}
	return match[1]
}
