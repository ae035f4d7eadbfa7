package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"text2sql-console/internal/middleware"
	"text2sql-console/internal/parser"
	"text2sql-console/internal/utils"
)

// ParseController exposes the response parsers without a session. The
// request body is the raw backend text.
type ParseController struct{}

func NewParseController() *ParseController {
	return &ParseController{}
}

// RegisterRoutes mounts the parse routes on rg
func (pc *ParseController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/parse/:kind", pc.Parse)
}

// Parse godoc
// @Summary Parse backend response text
// @Description kind is one of schema, sql, combined or results
// @Tags parse
// @Accept plain
// @Produce json
// @Param kind path string true "Parser"
// @Router /api/v1/parse/{kind} [post]
func (pc *ParseController) Parse(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		sendBindError(c, err)
		return
	}

	kind := c.Param("kind")
	result, ok := parser.Run(kind, string(body))
	if !ok {
		sendError(c, utils.NewErrorBuilder(utils.ErrCodeInvalidRequest).
			WithMessage("unknown parser "+kind).
			WithDetails("expected one of "+strings.Join(parser.Kinds, ", ")).
			Build())
		return
	}
	middleware.RecordParseOutcome(kind, result != nil)
	sendData(c, http.StatusOK, result)
}
