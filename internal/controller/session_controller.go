package controller

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"text2sql-console/internal/model"
	"text2sql-console/internal/service"
)

type SessionController struct {
	store     *service.SessionStore
	validator *validator.Validate
}

type queryRequest struct {
	Query string `json:"query"`
}

type columnRequest struct {
	Table  string `json:"table" validate:"required"`
	Column string `json:"column" validate:"required"`
}

type explainRequest struct {
	SQL string `json:"sql"`
}

type feedbackRequest struct {
	IsCorrect    *bool  `json:"isCorrect" validate:"required"`
	CorrectedSQL string `json:"correctedSql"`
	Description  string `json:"description"`
}

type switchDataSourceRequest struct {
	DataSourceID string `json:"dataSourceId" validate:"required"`
}

type explainResponse struct {
	SQL         string `json:"sql"`
	Explanation string `json:"explanation"`
}

func NewSessionController(store *service.SessionStore) *SessionController {
	return &SessionController{
		store:     store,
		validator: validator.New(),
	}
}

// RegisterRoutes mounts the session routes on rg
func (sc *SessionController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/examples", sc.GetExamples)

	sessions := rg.Group("/sessions")
	{
		sessions.POST("", sc.CreateSession)
		sessions.GET("/:sid", sc.GetSession)
		sessions.DELETE("/:sid", sc.DeleteSession)

		sessions.POST("/:sid/connection/check", sc.CheckConnection)
		sessions.POST("/:sid/schema/load", sc.LoadSchema)
		sessions.PUT("/:sid/query", sc.SetQuery)
		sessions.POST("/:sid/query/columns", sc.InsertColumnName)
		sessions.POST("/:sid/convert", sc.ConvertToSQL)
		sessions.POST("/:sid/execute", sc.ExecuteSQL)
		sessions.POST("/:sid/query-and-execute", sc.QueryAndExecute)
		sessions.POST("/:sid/explain", sc.ExplainSQL)
		sessions.POST("/:sid/feedback", sc.SubmitFeedback)
		sessions.POST("/:sid/clear", sc.ClearAll)
		sessions.PUT("/:sid/datasource", sc.SwitchDataSource)
	}
}

// GetExamples godoc
// @Summary List example questions
// @Tags sessions
// @Produce json
// @Router /api/v1/examples [get]
func (sc *SessionController) GetExamples(c *gin.Context) {
	sendData(c, http.StatusOK, model.ExampleQueries)
}

// CreateSession godoc
// @Summary Start a console session
// @Description Creates a disconnected session with an empty schema
// @Tags sessions
// @Produce json
// @Success 201 {object} response.StandardResponse{data=service.SessionState}
// @Router /api/v1/sessions [post]
func (sc *SessionController) CreateSession(c *gin.Context) {
	session := sc.store.Create()
	sendData(c, http.StatusCreated, session.Snapshot())
}

func (sc *SessionController) GetSession(c *gin.Context) {
	session, ok := sc.session(c)
	if !ok {
		return
	}
	sendData(c, http.StatusOK, session.Snapshot())
}

func (sc *SessionController) DeleteSession(c *gin.Context) {
	if err := sc.store.Delete(c.Param("sid")); err != nil {
		sendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (sc *SessionController) CheckConnection(c *gin.Context) {
	sc.run(c, func(ctx context.Context, s *service.Session) error {
		return s.CheckConnection(ctx)
	})
}

func (sc *SessionController) LoadSchema(c *gin.Context) {
	sc.run(c, func(ctx context.Context, s *service.Session) error {
		return s.LoadSchema(ctx)
	})
}

func (sc *SessionController) SetQuery(c *gin.Context) {
	var req queryRequest
	if !sc.bind(c, &req) {
		return
	}
	sc.run(c, func(_ context.Context, s *service.Session) error {
		s.SetQuery(req.Query)
		return nil
	})
}

func (sc *SessionController) InsertColumnName(c *gin.Context) {
	var req columnRequest
	if !sc.bind(c, &req) {
		return
	}
	sc.run(c, func(_ context.Context, s *service.Session) error {
		s.InsertColumnName(req.Table, req.Column)
		return nil
	})
}

// ConvertToSQL godoc
// @Summary Generate SQL for a question
// @Description Rejected with 409 ALREADY_PROCESSING while a conversion or execution is running
// @Tags sessions
// @Accept json
// @Produce json
// @Param sid path string true "Session id"
// @Success 200 {object} response.StandardResponse{data=service.SessionState}
// @Failure 400 {object} response.StandardResponse
// @Failure 409 {object} response.StandardResponse
// @Failure 412 {object} response.StandardResponse
// @Failure 502 {object} response.StandardResponse
// @Router /api/v1/sessions/{sid}/convert [post]
func (sc *SessionController) ConvertToSQL(c *gin.Context) {
	var req queryRequest
	if !sc.bind(c, &req) {
		return
	}
	sc.run(c, func(ctx context.Context, s *service.Session) error {
		return s.ConvertToSQL(ctx, req.Query)
	})
}

func (sc *SessionController) ExecuteSQL(c *gin.Context) {
	sc.run(c, func(ctx context.Context, s *service.Session) error {
		return s.ExecuteSQL(ctx)
	})
}

func (sc *SessionController) QueryAndExecute(c *gin.Context) {
	var req queryRequest
	if !sc.bind(c, &req) {
		return
	}
	sc.run(c, func(ctx context.Context, s *service.Session) error {
		return s.QueryAndExecute(ctx, req.Query)
	})
}

func (sc *SessionController) ExplainSQL(c *gin.Context) {
	var req explainRequest
	if !sc.bind(c, &req) {
		return
	}
	session, ok := sc.session(c)
	if !ok {
		return
	}

	text, err := session.ExplainSQL(context.WithoutCancel(c.Request.Context()), req.SQL)
	if err != nil {
		sendError(c, err)
		return
	}

	sql := req.SQL
	if sql == "" {
		sql = session.Snapshot().GeneratedSQL
	}
	sendData(c, http.StatusOK, explainResponse{SQL: sql, Explanation: text})
}

func (sc *SessionController) SubmitFeedback(c *gin.Context) {
	var req feedbackRequest
	if !sc.bind(c, &req) {
		return
	}
	sc.run(c, func(ctx context.Context, s *service.Session) error {
		return s.SubmitFeedback(ctx, *req.IsCorrect, req.CorrectedSQL, req.Description)
	})
}

func (sc *SessionController) ClearAll(c *gin.Context) {
	sc.run(c, func(_ context.Context, s *service.Session) error {
		s.ClearAll()
		return nil
	})
}

// SwitchDataSource godoc
// @Summary Switch the session to another data source
// @Description Clears schema, SQL and results, then checks the new data source and loads its schema
// @Tags sessions
// @Accept json
// @Produce json
// @Param sid path string true "Session id"
// @Router /api/v1/sessions/{sid}/datasource [put]
func (sc *SessionController) SwitchDataSource(c *gin.Context) {
	var req switchDataSourceRequest
	if !sc.bind(c, &req) {
		return
	}
	sc.run(c, func(ctx context.Context, s *service.Session) error {
		return s.SwitchDataSource(ctx, req.DataSourceID)
	})
}

func (sc *SessionController) session(c *gin.Context) (*service.Session, bool) {
	session, err := sc.store.Get(c.Param("sid"))
	if err != nil {
		sendError(c, err)
		return nil, false
	}
	return session, true
}

// run resolves the session, applies op and answers with the resulting
// state. A client that goes away does not cancel a backend call already
// under way.
func (sc *SessionController) run(c *gin.Context, op func(ctx context.Context, s *service.Session) error) {
	session, ok := sc.session(c)
	if !ok {
		return
	}

	if err := op(context.WithoutCancel(c.Request.Context()), session); err != nil {
		sendError(c, err)
		return
	}

	state := session.Snapshot()
	sendDataMessage(c, state, state.Notice)
}

// bind decodes an optional JSON body and validates it
func (sc *SessionController) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		sendBindError(c, err)
		return false
	}
	if err := sc.validator.Struct(req); err != nil {
		sendValidationError(c, err)
		return false
	}
	return true
}
