package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ziyi127/SCS/internal/dto"
	"github.com/ziyi127/SCS/internal/service"
	"github.com/ziyi127/SCS/pkg/response"
)

// CourseHandler 课程模板 Handler
type CourseHandler struct {
	svc service.TimetableService
}

// NewCourseHandler 创建 CourseHandler 实例
func NewCourseHandler(svc service.TimetableService) *CourseHandler {
	return &CourseHandler{svc: svc}
}

// List 全部课程，按添加顺序
// GET /api/v1/courses
func (h *CourseHandler) List(c *gin.Context) {
	response.OK(c, h.svc.Courses())
}

// Create 添加课程
// POST /api/v1/courses
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	course, err := req.ToModel()
	if err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	if err := h.svc.AddCourse(c.Request.Context(), course); err != nil {
		handleTimetableError(c, err)
		return
	}
	response.Created(c, course)
}

// Update 编辑课程
// PUT /api/v1/courses
func (h *CourseHandler) Update(c *gin.Context) {
	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	key, err := req.Key.ToKey()
	if err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	course, err := req.Course.ToModel()
	if err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	if err := h.svc.UpdateCourse(c.Request.Context(), key, course); err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, course)
}

// Delete 按 (day, start_time, name) 删除课程
// DELETE /api/v1/courses
func (h *CourseHandler) Delete(c *gin.Context) {
	var req dto.CourseKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	key, err := req.ToKey()
	if err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	if err := h.svc.RemoveCourse(c.Request.Context(), key); err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, nil)
}

// CheckConflict 检查课程是否与已有课程冲突，不做修改
// POST /api/v1/courses/conflict
func (h *CourseHandler) CheckConflict(c *gin.Context) {
	var req dto.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	course, err := req.ToModel()
	if err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	if hit := h.svc.CheckTimeConflict(course); hit != nil {
		response.OK(c, &dto.ConflictResponse{Existing: *hit})
		return
	}
	response.OK(c, nil)
}

// Swap 交换两门课
// POST /api/v1/courses/swap
//
// permanent=false 时只交换今天的课表（保存为今天的临时课表）
func (h *CourseHandler) Swap(c *gin.Context) {
	var req dto.SwapCoursesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	a, err := req.A.ToKey()
	if err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	b, err := req.B.ToKey()
	if err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	swapped, err := h.svc.SwapCourses(c.Request.Context(), a, b, req.Permanent)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, dto.SwapCoursesResponse{Swapped: swapped, Permanent: req.Permanent})
}
