package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"text2sql-console/internal/model"
	"text2sql-console/internal/service"
	"text2sql-console/internal/utils"
)

type DataSourceController struct {
	service service.DataSourceService
}

type activationResponse struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

func NewDataSourceController(service service.DataSourceService) *DataSourceController {
	return &DataSourceController{
		service: service,
	}
}

// RegisterRoutes mounts the data-source routes on rg
func (dc *DataSourceController) RegisterRoutes(rg *gin.RouterGroup) {
	datasources := rg.Group("/datasources")
	{
		datasources.POST("", dc.CreateDataSource)
		datasources.GET("", dc.ListDataSources)
		datasources.GET("/stats", dc.GetDataSourceStats)
		datasources.POST("/test", dc.TestConnection)
		datasources.GET("/:id", dc.GetDataSource)
		datasources.PUT("/:id", dc.UpdateDataSource)
		datasources.DELETE("/:id", dc.DeleteDataSource)
		datasources.POST("/:id/activate", dc.ActivateDataSource)
		datasources.GET("/:id/status", dc.CheckStatus)
	}
}

// CreateDataSource godoc
// @Summary Create a data source profile
// @Description Replaces any existing profile; the backend keeps a single active data source
// @Tags datasources
// @Accept json
// @Produce json
// @Param request body model.DataSourceProfile true "Data source profile"
// @Success 201 {object} response.StandardResponse{data=model.DataSourceProfile}
// @Failure 400 {object} response.StandardResponse
// @Failure 422 {object} response.StandardResponse
// @Failure 502 {object} response.StandardResponse
// @Router /api/v1/datasources [post]
func (dc *DataSourceController) CreateDataSource(c *gin.Context) {
	var profile model.DataSourceProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		sendBindError(c, err)
		return
	}

	created, err := dc.service.CreateDataSource(c.Request.Context(), &profile)
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusCreated, created)
}

// GetDataSource godoc
// @Summary Get a data source profile
// @Tags datasources
// @Produce json
// @Param id path string true "Data source id"
// @Success 200 {object} response.StandardResponse{data=model.DataSourceProfile}
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/datasources/{id} [get]
func (dc *DataSourceController) GetDataSource(c *gin.Context) {
	profile, err := dc.service.GetDataSource(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, profile)
}

// ListDataSources godoc
// @Summary List data source profiles
// @Tags datasources
// @Produce json
// @Success 200 {object} response.StandardResponse{data=[]model.DataSourceProfile}
// @Router /api/v1/datasources [get]
func (dc *DataSourceController) ListDataSources(c *gin.Context) {
	profiles, err := dc.service.ListDataSources(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, profiles)
}

func (dc *DataSourceController) UpdateDataSource(c *gin.Context) {
	var profile model.DataSourceProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		sendBindError(c, err)
		return
	}

	updated, err := dc.service.UpdateDataSource(c.Request.Context(), c.Param("id"), &profile)
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, updated)
}

func (dc *DataSourceController) DeleteDataSource(c *gin.Context) {
	if err := dc.service.DeleteDataSource(c.Request.Context(), c.Param("id")); err != nil {
		sendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TestConnection godoc
// @Summary Test an unsaved profile
// @Description A failed connection is reported as data.success=false with status 200
// @Tags datasources
// @Accept json
// @Produce json
// @Router /api/v1/datasources/test [post]
func (dc *DataSourceController) TestConnection(c *gin.Context) {
	var profile model.DataSourceProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		sendBindError(c, err)
		return
	}

	result, err := dc.service.TestConnection(c.Request.Context(), &profile)
	if err != nil {
		sendError(c, err)
		return
	}
	sendDataMessage(c, result, result.Message)
}

func (dc *DataSourceController) ActivateDataSource(c *gin.Context) {
	active := true
	if raw := c.Query("active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			sendError(c, utils.NewErrorBuilder(utils.ErrCodeInvalidRequest).
				WithMessage("active must be true or false").
				WithDetails(raw).
				Build())
			return
		}
		active = parsed
	}

	id := c.Param("id")
	if err := dc.service.ActivateDataSource(c.Request.Context(), id, active); err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, activationResponse{ID: id, Active: active})
}

func (dc *DataSourceController) CheckStatus(c *gin.Context) {
	status, err := dc.service.CheckStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}
	sendDataMessage(c, status, status.Message)
}

func (dc *DataSourceController) GetDataSourceStats(c *gin.Context) {
	stats, err := dc.service.GetDataSourceStats(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	sendData(c, http.StatusOK, stats)
}
