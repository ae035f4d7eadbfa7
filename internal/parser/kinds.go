package parser

// Kinds lists the names accepted by Run.
var Kinds = []string{"schema", "sql", "combined", "results"}

// Run applies the parser named kind to text. ok is false for an unknown
// kind. A results parse that finds no table yields a nil result.
func Run(kind, text string) (result any, ok bool) {
	switch kind {
	case "schema":
		return ParseSchema(text), true
	case "sql":
		return ParseSQLAndExplanation(text), true
	case "combined":
		return ParseCombined(text), true
	case "results":
		if results := ParseResults(text); results != nil {
			return results, true
		}
		return nil, true
	default:
		return nil, false
	}
}
