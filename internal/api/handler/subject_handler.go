package handler

import (
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/ziyi127/SCS/internal/dto"
	"github.com/ziyi127/SCS/internal/service"
	"github.com/ziyi127/SCS/pkg/response"
)

// SubjectHandler 科目库 Handler
type SubjectHandler struct {
	svc service.TimetableService
}

// NewSubjectHandler 创建 SubjectHandler 实例
func NewSubjectHandler(svc service.TimetableService) *SubjectHandler {
	return &SubjectHandler{svc: svc}
}

// List 科目库，按名称排序
// GET /api/v1/subjects
func (h *SubjectHandler) List(c *gin.Context) {
	subjects := h.svc.Subjects()
	list := make([]dto.SubjectResponse, 0, len(subjects))
	for name, info := range subjects {
		list = append(list, dto.SubjectResponse{Name: name, SubjectInfo: info})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	response.OK(c, list)
}

// Get 查询单个科目
// GET /api/v1/subjects/:name
func (h *SubjectHandler) Get(c *gin.Context) {
	name := c.Param("name")
	info, ok := h.svc.GetSubjectInfo(name)
	if !ok {
		response.NotFound(c, 20102, "科目不存在")
		return
	}
	response.OK(c, dto.SubjectResponse{Name: name, SubjectInfo: info})
}

// Create 新增或覆盖科目
// POST /api/v1/subjects
func (h *SubjectHandler) Create(c *gin.Context) {
	var req dto.SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	if err := h.svc.AddSubject(c.Request.Context(), req.Name, req.ToModel()); err != nil {
		handleTimetableError(c, err)
		return
	}
	info, _ := h.svc.GetSubjectInfo(req.Name)
	response.Created(c, dto.SubjectResponse{Name: req.Name, SubjectInfo: info})
}

// Delete 删除科目，已有课程不受影响
// DELETE /api/v1/subjects/:name
func (h *SubjectHandler) Delete(c *gin.Context) {
	if err := h.svc.RemoveSubject(c.Request.Context(), c.Param("name")); err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, nil)
}
