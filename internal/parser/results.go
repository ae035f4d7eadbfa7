package parser

import (
	"regexp"
	"strconv"
	"strings"

	"text2sql-console/internal/model"
)

var statsPattern = regexp.MustCompile(`返回 (\d+) 行数据，执行耗时 (\d+) ms`)

type resultStats struct {
	totalRows       int
	executionTimeMs int64
	truncated       bool
}

// ParseResults parses an execution response into a ResultSet.
//
// A stats line reporting zero rows short-circuits to an empty set without
// looking at any table. Otherwise nil is returned when no result table can
// be located, which callers must tell apart from an empty table.
func ParseResults(text string) *model.ResultSet {
	lines := splitLines(text)
	stats := scanStats(lines)

	if stats.totalRows == 0 {
		return &model.ResultSet{
			Columns:         []string{},
			Rows:            [][]*string{},
			ExecutionTimeMs: stats.executionTimeMs,
		}
	}

	tableLines, ok := afterLabel(lines, labelQueryResult)
	if !ok {
		return nil
	}

	header, separator := findHeader(tableLines)
	if header < 0 || separator < 0 {
		return nil
	}

	columns := headerColumns(tableLines[header])
	rows := [][]*string{}
	for _, line := range tableLines[separator+1:] {
		if !strings.HasPrefix(line, "|") || strings.Contains(line, markerRowEllipsis) {
			break
		}
		if row := rowCells(line, len(columns)); row != nil {
			rows = append(rows, row)
		}
	}

	return &model.ResultSet{
		Columns:         columns,
		Rows:            rows,
		TotalRows:       stats.totalRows,
		ExecutionTimeMs: stats.executionTimeMs,
		Truncated:       stats.truncated,
	}
}

// scanStats reads the first line carrying the stats label.
func scanStats(lines []string) resultStats {
	var stats resultStats
	for _, line := range lines {
		if !strings.Contains(line, labelQueryStats) {
			continue
		}
		if match := statsPattern.FindStringSubmatch(line); match != nil {
			stats.totalRows, _ = strconv.Atoi(match[1])
			stats.executionTimeMs, _ = strconv.ParseInt(match[2], 10, 64)
		}
		stats.truncated = strings.Contains(line, markerTruncated)
		break
	}
	return stats
}

func afterLabel(lines []string, label string) ([]string, bool) {
	for i, line := range lines {
		if strings.Contains(line, label) {
			return lines[i+1:], true
		}
	}
	return nil, false
}

// findHeader returns the index of the first pipe line and of the first
// later pipe line holding a separator token, or -1 for either.
func findHeader(lines []string) (header, separator int) {
	header, separator = -1, -1
	for i, line := range lines {
		if !strings.HasPrefix(line, "|") {
			continue
		}
		if header < 0 {
			header = i
			continue
		}
		if strings.Contains(line, tableSeparator) {
			separator = i
			break
		}
	}
	return header, separator
}

func headerColumns(line string) []string {
	columns := []string{}
	for _, cell := range strings.Split(line, "|") {
		if cell = strings.TrimSpace(cell); cell != "" {
			columns = append(columns, cell)
		}
	}
	return columns
}

// rowCells keeps the cells at positions 1..width, dropping the artifacts of
// the leading and trailing pipes. A row that ends up with a different
// width is rejected.
func rowCells(line string, width int) []*string {
	parts := strings.Split(line, "|")
	row := make([]*string, 0, width)
	for i, part := range parts {
		if i == 0 || i > width {
			continue
		}
		cell := strings.TrimSpace(part)
		if cell == nullCell {
			row = append(row, nil)
			continue
		}
		row = append(row, &cell)
	}
	if len(row) != width {
		return nil
	}
	return row
}
