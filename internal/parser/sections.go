package parser

import (
	"strings"

	"text2sql-console/internal/model"
)

// sectionState is the capture region the scanner is in.
type sectionState int

const (
	stateNone sectionState = iota
	stateSQL
	stateExplanation
	stateResults
)

// trigger is a line that moves the scanner between states. Trigger lines
// are never captured.
type trigger int

const (
	triggerContent trigger = iota
	triggerSQLLabel
	triggerFenceOpen
	triggerFenceClose
	triggerExplanationLabel
	triggerResultsLabel
)

// transitions maps a trigger to the state it enters. triggerContent is
// absent: content lines keep the current state.
var transitions = map[trigger]sectionState{
	triggerSQLLabel:         stateNone,
	triggerFenceOpen:        stateSQL,
	triggerFenceClose:       stateNone,
	triggerExplanationLabel: stateExplanation,
	triggerResultsLabel:     stateResults,
}

// sectionScanner is a single left-to-right pass over a response body.
type sectionScanner struct {
	withResults bool
	state       sectionState

	buffers map[sectionState][]string

	// Lines sitting directly under a SQL label with no fence, used only
	// when no fenced block was captured at all.
	afterSQLLabel bool
	bareSQL       []string
}

func newSectionScanner(withResults bool) *sectionScanner {
	return &sectionScanner{
		withResults: withResults,
		buffers:     make(map[sectionState][]string),
	}
}

// classify checks triggers in a fixed priority order. The labels are
// matched anywhere in the line.
func (s *sectionScanner) classify(line string) trigger {
	switch {
	case strings.Contains(line, labelGeneratedSQL) || strings.Contains(line, labelGeneratedSQLShort):
		return triggerSQLLabel
	case strings.Contains(line, fenceSQL):
		return triggerFenceOpen
	case strings.Contains(line, fenceClose) && s.state == stateSQL:
		return triggerFenceClose
	case strings.Contains(line, labelExplanation):
		return triggerExplanationLabel
	case s.withResults && strings.Contains(line, labelExecutionResults):
		return triggerResultsLabel
	default:
		return triggerContent
	}
}

func (s *sectionScanner) feed(line string) {
	t := s.classify(line)
	if t != triggerContent {
		s.state = transitions[t]
		s.afterSQLLabel = t == triggerSQLLabel
		return
	}

	if strings.TrimSpace(line) == "" {
		return
	}

	switch s.state {
	case stateSQL, stateExplanation, stateResults:
		s.buffers[s.state] = append(s.buffers[s.state], line)
	case stateNone:
		if s.withResults && s.afterSQLLabel {
			s.bareSQL = append(s.bareSQL, line)
		}
	}
}

func (s *sectionScanner) text(state sectionState) string {
	return strings.TrimSpace(strings.Join(s.buffers[state], "\n"))
}

func (s *sectionScanner) extraction() model.SqlExtraction {
	sql := s.text(stateSQL)
	if sql == "" && len(s.bareSQL) > 0 {
		sql = strings.TrimSpace(strings.Join(s.bareSQL, "\n"))
	}
	return model.SqlExtraction{
		SQL:         sql,
		Explanation: s.text(stateExplanation),
	}
}

func scanSections(text string, withResults bool) *sectionScanner {
	scanner := newSectionScanner(withResults)
	for _, line := range splitLines(text) {
		scanner.feed(line)
	}
	return scanner
}

// ParseSQLAndExplanation extracts the generated statement (the lines of the
// fenced sql block) and the explanation (the lines after the explanation
// label) from a text-to-SQL response. Blank lines are never captured.
func ParseSQLAndExplanation(text string) model.SqlExtraction {
	return scanSections(text, false).extraction()
}

// ParseCombined parses a generate-and-execute response: the statement and
// explanation as in ParseSQLAndExplanation, plus the result table found
// after the execution-results label. The explanation stops at that label.
//
// The backend writes the statement of a combined response bare under the
// SQL label; those lines are used when no fenced block is present.
func ParseCombined(text string) model.CombinedResult {
	scanner := scanSections(text, true)
	return model.CombinedResult{
		SqlExtraction: scanner.extraction(),
		Results:       ParseResults(strings.Join(scanner.buffers[stateResults], "\n")),
	}
}
