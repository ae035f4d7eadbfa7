package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"text2sql-console/internal/middleware"
	"text2sql-console/internal/model"
	"text2sql-console/internal/parser"
	"text2sql-console/internal/repository"
	"text2sql-console/internal/utils"
)

// DefaultFeedbackResetDelay is how long the feedback flag stays set after a
// submission.
const DefaultFeedbackResetDelay = 3 * time.Second

// ConnectionState is the connection state of a session.
type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "DISCONNECTED"
	ConnectionConnected    ConnectionState = "CONNECTED"
	ConnectionSchemaLoaded ConnectionState = "SCHEMA_LOADED"
)

// SessionState is a point-in-time copy of everything a console shows.
//
// Schema and Results are replaced wholesale, never mutated, so a snapshot
// may share them with the live session.
type SessionState struct {
	ID                 string             `json:"id"`
	Connection         ConnectionState    `json:"connection"`
	ActiveDataSourceID string             `json:"activeDataSourceId,omitempty"`
	DatabaseName       string             `json:"databaseName,omitempty"`
	ConnectionMessage  string             `json:"connectionMessage,omitempty"`
	UserQuery          string             `json:"userQuery"`
	Schema             *model.SchemaModel `json:"schema"`
	GeneratedSQL       string             `json:"generatedSql"`
	Explanation        string             `json:"explanation"`
	Results            *model.ResultSet   `json:"results"`
	FeedbackSubmitted  bool               `json:"feedbackSubmitted"`
	Converting         bool               `json:"converting"`
	Executing          bool               `json:"executing"`
	Notice             string             `json:"notice,omitempty"`
	Generation         uint64             `json:"generation"`
}

// IsConnected reports whether the last connection check succeeded.
func (s SessionState) IsConnected() bool {
	return s.Connection == ConnectionConnected || s.Connection == ConnectionSchemaLoaded
}

// SessionOptions tunes a session.
type SessionOptions struct {
	FeedbackResetDelay time.Duration
}

// Session drives one console against the backend.
//
// The mutex guards state only and is never held across a backend call.
// Every call captures the generation it started under; SwitchDataSource
// bumps it, and a response arriving under an older generation is dropped
// with STALE_RESPONSE instead of being published.
type Session struct {
	console     repository.ConsoleRepository
	dataSources repository.DataSourceRepository
	logger      *zap.Logger

	feedbackResetDelay time.Duration

	mu            sync.Mutex
	state         SessionState
	feedbackSeq   uint64
	feedbackTimer *time.Timer
	closed        bool
}

// NewSession creates a disconnected session with an empty schema.
func NewSession(id string, console repository.ConsoleRepository, dataSources repository.DataSourceRepository, opts SessionOptions, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	delay := opts.FeedbackResetDelay
	if delay <= 0 {
		delay = DefaultFeedbackResetDelay
	}

	return &Session{
		console:            console,
		dataSources:        dataSources,
		logger:             logger.With(zap.String("session_id", id)),
		feedbackResetDelay: delay,
		state: SessionState{
			ID:         id,
			Connection: ConnectionDisconnected,
			Schema:     model.NewSchemaModel(),
		},
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.state.ID
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops the feedback timer. A closed session still answers Snapshot.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.feedbackTimer != nil {
		s.feedbackTimer.Stop()
		s.feedbackTimer = nil
	}
}

// scope is what a backend call captures before the lock is released.
type scope struct {
	generation   uint64
	dataSourceID string
}

func (s *Session) scopeLocked() scope {
	return scope{generation: s.state.Generation, dataSourceID: s.state.ActiveDataSourceID}
}

func (s *Session) currentScope() scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scopeLocked()
}

// publish runs apply under the lock unless the generation moved on.
func (s *Session) publish(op string, sc scope, apply func(st *SessionState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc.generation != s.state.Generation {
		s.logger.Info("Dropping stale response",
			zap.String("operation", op),
			zap.Uint64("started_generation", sc.generation),
			zap.Uint64("current_generation", s.state.Generation))
		middleware.RecordRejectedCall(op, utils.ErrCodeStaleResponse)
		return utils.NewSessionError(utils.ErrCodeStaleResponse)
	}

	apply(&s.state)
	return nil
}

func (s *Session) reject(op, code string) error {
	middleware.RecordRejectedCall(op, code)
	s.logger.Debug("Session operation rejected", zap.String("operation", op), zap.String("code", code))
	return utils.NewSessionError(code)
}

// CheckConnection probes the active data source, or the backend itself when
// there is none. On success an empty schema is loaded right away; a failure
// of that load only becomes the notice.
func (s *Session) CheckConnection(ctx context.Context) error {
	return s.checkConnection(ctx, true)
}

func (s *Session) checkConnection(ctx context.Context, autoload bool) error {
	sc := s.currentScope()

	status, err := s.probe(ctx, sc.dataSourceID)
	if err != nil {
		failure := backendFailure(err)
		if pubErr := s.publish("check_connection", sc, func(st *SessionState) {
			st.Connection = ConnectionDisconnected
			st.DatabaseName = ""
			st.ConnectionMessage = failureMessage(failure)
			st.Notice = "Database connection failed: " + st.ConnectionMessage
		}); pubErr != nil {
			return pubErr
		}
		s.recordUp(sc.dataSourceID, false)
		return failure
	}

	var needSchema bool
	if err := s.publish("check_connection", sc, func(st *SessionState) {
		st.ConnectionMessage = status.Message
		if !status.Connected {
			st.Connection = ConnectionDisconnected
			st.DatabaseName = ""
			st.Notice = "Database is not connected: " + status.Message
			return
		}
		if st.Connection != ConnectionSchemaLoaded {
			st.Connection = ConnectionConnected
		}
		if name := parser.ExtractDatabaseName(status.Message); name != "" {
			st.DatabaseName = name
		}
		st.Notice = "Database connection is healthy"
		needSchema = st.Schema.IsEmpty()
	}); err != nil {
		return err
	}
	s.recordUp(sc.dataSourceID, status.Connected)

	if autoload && needSchema {
		s.logger.Debug("Schema empty after connection check, loading it")
		if err := s.loadSchema(ctx, false); err != nil {
			if utils.IsErrorType(err, utils.ErrCodeStaleResponse) {
				return err
			}
			s.setNotice(sc, "Loading the database schema failed: "+failureMessage(err))
		}
	}
	return nil
}

func (s *Session) probe(ctx context.Context, dataSourceID string) (*model.ConnectionStatus, error) {
	if dataSourceID != "" {
		status, err := s.dataSources.Status(ctx, dataSourceID)
		if errors.Is(err, repository.ErrMalformedPayload) {
			return &model.ConnectionStatus{Connected: false, Message: "unrecognised status response"}, nil
		}
		return status, err
	}

	info, err := s.console.ServerInfo(ctx)
	if err != nil {
		return nil, err
	}
	message := info.Message
	if message == "" {
		message = "Backend is reachable"
	}
	return &model.ConnectionStatus{Connected: true, Message: message}, nil
}

func (s *Session) recordUp(dataSourceID string, up bool) {
	if dataSourceID != "" {
		middleware.UpdateDataSourceUp(dataSourceID, up)
	}
}

func (s *Session) setNotice(sc scope, notice string) {
	_ = s.publish("notice", sc, func(st *SessionState) {
		st.Notice = notice
	})
}

// LoadSchema fetches and normalizes the schema of the active data source.
// A disconnected session gets a connection check first; the load goes ahead
// whatever that check says.
func (s *Session) LoadSchema(ctx context.Context) error {
	return s.loadSchema(ctx, true)
}

func (s *Session) loadSchema(ctx context.Context, precheck bool) error {
	if precheck && !s.Snapshot().IsConnected() {
		if err := s.checkConnection(ctx, false); utils.IsErrorType(err, utils.ErrCodeStaleResponse) {
			return err
		}
	}

	sc := s.currentScope()

	payload, err := s.console.FetchSchema(ctx, sc.dataSourceID)
	if errors.Is(err, repository.ErrMalformedPayload) {
		middleware.RecordParseOutcome("schema", false)
		return s.publish("load_schema", sc, func(st *SessionState) {
			st.Schema = model.NewSchemaModel()
			st.Notice = "The backend answered with no schema information"
		})
	}
	if err != nil {
		return backendFailure(err)
	}

	schema := payload.Normalize()
	middleware.RecordParseOutcome("schema", !schema.IsEmpty())
	s.logger.Info("Schema loaded",
		zap.String("shape", payload.Shape()),
		zap.Int("tables", len(schema.Tables)),
		zap.Int("columns", schema.TotalColumns))

	return s.publish("load_schema", sc, func(st *SessionState) {
		st.Schema = schema
		if schema.DatabaseName != "" {
			st.DatabaseName = schema.DatabaseName
		}
		st.Connection = ConnectionSchemaLoaded
		st.Notice = fmt.Sprintf("Schema loaded: %d tables, %d columns", len(schema.Tables), schema.TotalColumns)
	})
}

// beginQuery validates a query operation and raises flag under the lock.
// The returned release must be deferred.
func (s *Session) beginQuery(op, query string, flag func(st *SessionState) *bool) (scope, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(query) == "" {
		return scope{}, nil, s.reject(op, utils.ErrCodeEmptyQuery)
	}
	if !s.state.IsConnected() {
		return scope{}, nil, s.reject(op, utils.ErrCodeNotConnected)
	}
	if s.state.Converting || s.state.Executing {
		return scope{}, nil, s.reject(op, utils.ErrCodeAlreadyProcessing)
	}

	s.state.UserQuery = query
	*flag(&s.state) = true
	return s.scopeLocked(), s.releaseFlag(flag), nil
}

func (s *Session) releaseFlag(flag func(st *SessionState) *bool) func() {
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		*flag(&s.state) = false
	}
}

func converting(st *SessionState) *bool { return &st.Converting }
func executing(st *SessionState) *bool  { return &st.Executing }

// ConvertToSQL asks the backend for a statement answering query.
func (s *Session) ConvertToSQL(ctx context.Context, query string) error {
	sc, release, err := s.beginQuery("convert", query, converting)
	if err != nil {
		return err
	}
	defer release()

	text, err := s.console.GenerateSQL(ctx, model.Text2SQLRequest{
		Prompt:       query,
		Context:      "",
		DataSourceID: sc.dataSourceID,
	})
	if err != nil && !errors.Is(err, repository.ErrMalformedPayload) {
		return backendFailure(err)
	}

	extraction := parser.ParseSQLAndExplanation(text)
	middleware.RecordParseOutcome("sql", extraction.SQL != "")

	return s.publish("convert", sc, func(st *SessionState) {
		st.GeneratedSQL = extraction.SQL
		st.Explanation = extraction.Explanation
		st.Notice = "SQL generated"
		if extraction.SQL == "" {
			st.Notice = "The response contained no SQL statement"
		}
	})
}

// ExecuteSQL runs the generated statement. It shares the processing gate
// with ConvertToSQL and QueryAndExecute.
func (s *Session) ExecuteSQL(ctx context.Context) error {
	s.mu.Lock()
	if s.state.GeneratedSQL == "" {
		s.mu.Unlock()
		return s.reject("execute", utils.ErrCodeNoGeneratedSQL)
	}
	if s.state.Converting || s.state.Executing {
		s.mu.Unlock()
		return s.reject("execute", utils.ErrCodeAlreadyProcessing)
	}
	s.state.Executing = true
	sql := s.state.GeneratedSQL
	sc := s.scopeLocked()
	s.mu.Unlock()
	defer s.releaseFlag(executing)()

	text, err := s.console.ExecuteSQL(ctx, sql)
	if errors.Is(err, repository.ErrMalformedPayload) {
		middleware.RecordParseOutcome("results", false)
		return s.publish("execute", sc, func(st *SessionState) {
			st.Results = nil
			st.Notice = noResultText
		})
	}
	if err != nil {
		return backendFailure(err)
	}

	results := parser.ParseResults(text)
	middleware.RecordParseOutcome("results", results != nil)

	return s.publish("execute", sc, func(st *SessionState) {
		st.Results = results
		st.Notice = resultNotice(results)
	})
}

// QueryAndExecute generates and runs a statement in one backend call. It
// holds the executing flag.
func (s *Session) QueryAndExecute(ctx context.Context, query string) error {
	sc, release, err := s.beginQuery("query_and_execute", query, executing)
	if err != nil {
		return err
	}
	defer release()

	text, err := s.console.QueryAndExecute(ctx, query)
	if errors.Is(err, repository.ErrMalformedPayload) {
		middleware.RecordParseOutcome("combined", false)
		return s.publish("query_and_execute", sc, func(st *SessionState) {
			st.GeneratedSQL = ""
			st.Explanation = ""
			st.Results = nil
			st.Notice = noResultText
		})
	}
	if err != nil {
		return backendFailure(err)
	}

	combined := parser.ParseCombined(text)
	middleware.RecordParseOutcome("combined", combined.SQL != "" || combined.Results != nil)

	return s.publish("query_and_execute", sc, func(st *SessionState) {
		st.GeneratedSQL = combined.SQL
		st.Explanation = combined.Explanation
		st.Results = combined.Results
		st.Notice = resultNotice(combined.Results)
	})
}

const noResultText = "The backend answered with no result text"

func resultNotice(results *model.ResultSet) string {
	switch {
	case results == nil:
		return "The response contained no result table"
	case results.TotalRows == 0:
		return fmt.Sprintf("Query returned no rows (%d ms)", results.ExecutionTimeMs)
	case results.Truncated:
		return fmt.Sprintf("Query returned %d rows in %d ms, showing the first %d", results.TotalRows, results.ExecutionTimeMs, len(results.Rows))
	default:
		return fmt.Sprintf("Query returned %d rows in %d ms", results.TotalRows, results.ExecutionTimeMs)
	}
}

// SubmitFeedback sends a correctness signal for the current query and
// statement. On success the feedback flag is set and cleared again after the
// reset delay; a newer submission restarts that delay.
func (s *Session) SubmitFeedback(ctx context.Context, isCorrect bool, correctedSQL, description string) error {
	s.mu.Lock()
	feedback := model.Feedback{
		UserQuery:    s.state.UserQuery,
		GeneratedSQL: s.state.GeneratedSQL,
		IsCorrect:    isCorrect,
		CorrectedSQL: correctedSQL,
		Description:  description,
	}
	s.mu.Unlock()

	if feedback.UserQuery == "" || feedback.GeneratedSQL == "" {
		return s.reject("feedback", utils.ErrCodeMissingFeedbackData)
	}

	ack, err := s.console.SubmitFeedback(ctx, feedback)
	if err != nil {
		return backendFailure(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.FeedbackSubmitted = true
	s.state.Notice = "Thank you for the feedback"
	if ack != "" {
		s.state.Notice = ack
	}
	s.restartFeedbackTimerLocked()
	return nil
}

func (s *Session) restartFeedbackTimerLocked() {
	if s.feedbackTimer != nil {
		s.feedbackTimer.Stop()
	}
	if s.closed {
		return
	}

	s.feedbackSeq++
	seq := s.feedbackSeq
	s.feedbackTimer = time.AfterFunc(s.feedbackResetDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.feedbackSeq == seq {
			s.state.FeedbackSubmitted = false
			s.feedbackTimer = nil
		}
	})
}

// SwitchDataSource makes id the active profile. Everything derived from the
// previous profile is cleared before the new one is checked and its schema
// loaded. Calls still in flight for the old profile become stale.
func (s *Session) SwitchDataSource(ctx context.Context, id string) error {
	s.mu.Lock()
	s.state.Generation++
	s.state.ActiveDataSourceID = id
	s.state.Connection = ConnectionDisconnected
	s.state.DatabaseName = ""
	s.state.ConnectionMessage = ""
	s.state.Schema = model.NewSchemaModel()
	s.state.GeneratedSQL = ""
	s.state.Explanation = ""
	s.state.Results = nil
	s.state.Notice = ""
	generation := s.state.Generation
	s.mu.Unlock()

	s.logger.Info("Switched data source", zap.String("datasource_id", id), zap.Uint64("generation", generation))

	// The load goes ahead whatever the check says; a failed check is
	// already recorded in the connection message.
	if err := s.checkConnection(ctx, false); utils.IsErrorType(err, utils.ErrCodeStaleResponse) {
		return err
	}
	return s.loadSchema(ctx, false)
}

// ClearAll resets the query and everything produced from it.
func (s *Session) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.UserQuery = ""
	s.state.GeneratedSQL = ""
	s.state.Explanation = ""
	s.state.Results = nil
	s.state.FeedbackSubmitted = false
	s.state.Notice = ""
	s.feedbackSeq++
	if s.feedbackTimer != nil {
		s.feedbackTimer.Stop()
		s.feedbackTimer = nil
	}
}

// SetQuery replaces the query text and drops the notice of the previous
// operation.
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UserQuery = query
	s.state.Notice = ""
}

// InsertColumnName appends "table.column" to the query, separated by a
// space when the query is not empty, and returns the inserted text.
func (s *Session) InsertColumnName(table, column string) string {
	insertion := table + "." + column

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.UserQuery != "" {
		s.state.UserQuery += " "
	}
	s.state.UserQuery += insertion
	s.state.Notice = "Inserted " + insertion
	return insertion
}

// ExplainSQL asks the backend to explain sql, or the generated statement
// when sql is empty. Session state is not changed.
func (s *Session) ExplainSQL(ctx context.Context, sql string) (string, error) {
	snapshot := s.Snapshot()
	if strings.TrimSpace(sql) == "" {
		sql = snapshot.GeneratedSQL
	}
	if sql == "" {
		return "", s.reject("explain", utils.ErrCodeNoGeneratedSQL)
	}

	text, err := s.console.ExplainSQL(ctx, model.ExplainSQLRequest{SQL: sql, Context: snapshot.UserQuery})
	if err != nil && !errors.Is(err, repository.ErrMalformedPayload) {
		return "", backendFailure(err)
	}
	return text, nil
}

// failureMessage is the human-readable part of an error.
func failureMessage(err error) string {
	if appErr, ok := utils.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
