package parser

const (
	maxCellWidth     = 50
	truncatedCellLen = 47
)

// FormatCellValue renders a result cell for display: NULL for a nil cell,
// and values longer than 50 characters cut to 47 plus "...".
func FormatCellValue(cell *string) string {
	if cell == nil {
		return nullCell
	}
	runes := []rune(*cell)
	if len(runes) > maxCellWidth {
		return string(runes[:truncatedCellLen]) + "..."
	}
	return *cell
}

// FormatRow renders every cell of a row with FormatCellValue.
func FormatRow(row []*string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = FormatCellValue(cell)
	}
	return out
}
