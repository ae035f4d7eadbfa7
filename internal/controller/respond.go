package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"text2sql-console/internal/middleware"
	"text2sql-console/internal/utils"
	"text2sql-console/pkg/response"
)

func sendData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, response.SuccessResponse(data, middleware.GetCorrelationID(c)))
}

func sendDataMessage(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, response.SuccessMessageResponse(data, message, middleware.GetCorrelationID(c)))
}

func sendError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := response.FromError(err, middleware.GetCorrelationID(c))
	c.JSON(status, body)
}

func sendBindError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, response.InvalidJSONResponse(err.Error(), middleware.GetCorrelationID(c)))
}

func sendValidationError(c *gin.Context, err error) {
	sendError(c, utils.NewValidationError("Validation failed", err.Error()))
}
