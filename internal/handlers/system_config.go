package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskflow/backend/internal/config"
	"github.com/taskflow/backend/internal/services"
	"github.com/taskflow/backend/pkg/response"
)

type SystemConfigHandler struct {
	configService *services.SystemConfigService
	holidays      *services.HolidayService
	base          config.ReportConfig
}

func NewSystemConfigHandler(configService *services.SystemConfigService, holidays *services.HolidayService, base config.ReportConfig) *SystemConfigHandler {
	return &SystemConfigHandler{configService: configService, holidays: holidays, base: base}
}

type reportSettingsResponse struct {
	services.ReportSettings
	Countries []services.CountryInfo `json:"supported_countries"`
}

func (h *SystemConfigHandler) settings() reportSettingsResponse {
	return reportSettingsResponse{
		ReportSettings: h.configService.ReportSettings(h.base),
		Countries:      h.holidays.SupportedCountries(),
	}
}

// GetReportSettings
// GET /api/system-config/report
func (h *SystemConfigHandler) GetReportSettings(c *gin.Context) {
	response.Success(c, h.settings())
}

// UpdateReportSettings applies the switches read at the next scheduler firing
// PUT /api/system-config/report
func (h *SystemConfigHandler) UpdateReportSettings(c *gin.Context) {
	var req services.UpdateReportSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.configService.UpdateReportSettings(&req, h.holidays); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.settings())
}
