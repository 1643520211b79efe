package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ziyi127/SCS/internal/dto"
	"github.com/ziyi127/SCS/internal/model"
	"github.com/ziyi127/SCS/internal/service"
	"github.com/ziyi127/SCS/pkg/response"
)

// TimetableHandler 课表查询 Handler
type TimetableHandler struct {
	svc service.TimetableService
}

// NewTimetableHandler 创建 TimetableHandler 实例
func NewTimetableHandler(svc service.TimetableService) *TimetableHandler {
	return &TimetableHandler{svc: svc}
}

// Today 某天的课表（默认今天）
// GET /api/v1/timetable/today?date=2024-09-02
func (h *TimetableHandler) Today(c *gin.Context) {
	date, ok := bindDate(c, h.svc)
	if !ok {
		return
	}
	response.OK(c, h.svc.Day(date))
}

// WeekType 某天的单双周
// GET /api/v1/timetable/week-type?date=2024-09-02
func (h *TimetableHandler) WeekType(c *gin.Context) {
	date, ok := bindDate(c, h.svc)
	if !ok {
		return
	}
	response.OK(c, h.svc.WeekType(date))
}

// bindDate 解析 ?date=，缺省为当前时间；日期按服务时区解释
func bindDate(c *gin.Context, svc service.TimetableService) (time.Time, bool) {
	var q dto.DateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "日期格式应为 YYYY-MM-DD")
		return time.Time{}, false
	}
	now := svc.Now()
	if q.Date == "" {
		return now, true
	}
	date, err := time.ParseInLocation(model.DateLayout, q.Date, now.Location())
	if err != nil {
		response.BadRequest(c, 10001, "日期格式应为 YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

// handleTimetableError 统一课表模块错误映射
func handleTimetableError(c *gin.Context, err error) {
	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		response.ErrorWithData(c, http.StatusConflict, 20002, "课程时间冲突", err.Error(),
			dto.ConflictResponse{Existing: conflict.Existing})
	case errors.Is(err, service.ErrCourseInvalid):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20001, "课程信息无效", err.Error())
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 20003, "课程不存在")
	case errors.Is(err, service.ErrSubjectInvalid):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20101, "科目信息无效", err.Error())
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 20102, "科目不存在")
	case errors.Is(err, service.ErrOverrideInvalid):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20201, "日期覆盖设置无效", err.Error())
	case errors.Is(err, service.ErrPersistFailed):
		response.ErrorWithDetails(c, http.StatusInternalServerError, 20301, "课表保存失败", err.Error())
	default:
		response.InternalError(c)
	}
}
