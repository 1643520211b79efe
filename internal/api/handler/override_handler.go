package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ziyi127/SCS/internal/dto"
	"github.com/ziyi127/SCS/internal/model"
	"github.com/ziyi127/SCS/internal/service"
	"github.com/ziyi127/SCS/pkg/response"
)

// OverrideHandler 学期起始日期与按日期覆盖
type OverrideHandler struct {
	svc service.TimetableService
}

// NewOverrideHandler 创建 OverrideHandler 实例
func NewOverrideHandler(svc service.TimetableService) *OverrideHandler {
	return &OverrideHandler{svc: svc}
}

// Get 全部覆盖设置
// GET /api/v1/overrides
func (h *OverrideHandler) Get(c *gin.Context) {
	response.OK(c, dto.OverridesResponse{Overrides: h.svc.Overrides()})
}

// SetSemesterStart 设置学期起始日期
// PUT /api/v1/overrides/semester-start
func (h *OverrideHandler) SetSemesterStart(c *gin.Context) {
	var req dto.SemesterStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "日期格式应为 YYYY-MM-DD")
		return
	}
	if err := h.svc.SetSemesterStartDate(c.Request.Context(), req.Date); err != nil {
		handleTimetableError(c, err)
		return
	}
	h.Get(c)
}

// ── 特殊日期 ──

// SetSpecialDate PUT /api/v1/overrides/special-dates/:date
func (h *OverrideHandler) SetSpecialDate(c *gin.Context) {
	v, ok := bindWeekType(c)
	if !ok {
		return
	}
	if err := h.svc.SetSpecialDateOverride(c.Request.Context(), c.Param("date"), v); err != nil {
		handleTimetableError(c, err)
		return
	}
	h.Get(c)
}

// ClearSpecialDate DELETE /api/v1/overrides/special-dates/:date
func (h *OverrideHandler) ClearSpecialDate(c *gin.Context) {
	if err := h.svc.ClearSpecialDateOverride(c.Request.Context(), c.Param("date")); err != nil {
		handleTimetableError(c, err)
		return
	}
	h.Get(c)
}

// ── 临时单双周 ──

// SetTempWeekType PUT /api/v1/overrides/temp-week-types/:date
func (h *OverrideHandler) SetTempWeekType(c *gin.Context) {
	v, ok := bindWeekType(c)
	if !ok {
		return
	}
	if err := h.svc.SetTempWeekType(c.Request.Context(), c.Param("date"), v); err != nil {
		handleTimetableError(c, err)
		return
	}
	h.Get(c)
}

// ClearTempWeekType DELETE /api/v1/overrides/temp-week-types/:date
func (h *OverrideHandler) ClearTempWeekType(c *gin.Context) {
	if err := h.svc.ClearTempWeekType(c.Request.Context(), c.Param("date")); err != nil {
		handleTimetableError(c, err)
		return
	}
	h.Get(c)
}

// ── 临时课表 ──

// SetTempSchedule 整天替换为给定课表
// PUT /api/v1/overrides/temp-schedules/:date
func (h *OverrideHandler) SetTempSchedule(c *gin.Context) {
	var req dto.TempScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	if err := h.svc.SetTempSchedule(c.Request.Context(), c.Param("date"), req.Courses); err != nil {
		handleTimetableError(c, err)
		return
	}
	h.Get(c)
}

// ClearTempSchedule DELETE /api/v1/overrides/temp-schedules/:date
func (h *OverrideHandler) ClearTempSchedule(c *gin.Context) {
	if err := h.svc.ClearTempSchedule(c.Request.Context(), c.Param("date")); err != nil {
		handleTimetableError(c, err)
		return
	}
	h.Get(c)
}

func bindWeekType(c *gin.Context) (model.WeekVariant, bool) {
	var req dto.WeekTypeOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, err.Error())
		return "", false
	}
	v, err := model.ParseWeekVariant(req.WeekType)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 20201, "日期覆盖设置无效", err.Error())
		return "", false
	}
	return v, true
}
