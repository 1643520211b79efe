package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ziyi127/SCS/internal/dto"
	"github.com/ziyi127/SCS/internal/service"
	"github.com/ziyi127/SCS/pkg/response"
)

// 导出文件的 Content-Type
var exportContentTypes = map[string]string{
	service.FormatExcel: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	service.FormatCSV:   "text/csv; charset=utf-8",
	service.FormatJSON:  "application/json; charset=utf-8",
	service.FormatICS:   "text/calendar; charset=utf-8",
}

// TransferHandler 课表导入导出
type TransferHandler struct {
	svc service.ImportExportService
}

// NewTransferHandler 创建 TransferHandler 实例
func NewTransferHandler(svc service.ImportExportService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// Import 导入课表，整体替换现有课程
// POST /api/v1/import/:format
//
// 文件可以是 multipart 的 file 字段，也可以直接作为请求体；
// ics 还接受 {"url": "..."} 从订阅地址下载。
func (h *TransferHandler) Import(c *gin.Context) {
	format := c.Param("format")
	ctx := c.Request.Context()

	if format == service.FormatICS && strings.HasPrefix(c.ContentType(), "application/json") {
		var req dto.ImportICSRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, err.Error())
			return
		}
		result, err := h.svc.ImportICSURL(ctx, req.URL)
		if err != nil {
			handleTransferError(c, err)
			return
		}
		response.OK(c, result)
		return
	}

	var importer func(context.Context, io.Reader) (*dto.ImportResult, error)
	switch format {
	case service.FormatExcel:
		importer = h.svc.ImportExcel
	case service.FormatCSV:
		importer = h.svc.ImportCSV
	case service.FormatJSON:
		importer = h.svc.ImportJSON
	case service.FormatICS:
		importer = h.svc.ImportICS
	default:
		response.BadRequest(c, 10001, "不支持的导入格式: "+format)
		return
	}

	body, err := uploadedFile(c)
	if err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}
	defer body.Close()

	result, err := importer(ctx, body)
	if err != nil {
		handleTransferError(c, err)
		return
	}
	response.OK(c, result)
}

// Export 导出课表文件
// GET /api/v1/export/:format
func (h *TransferHandler) Export(c *gin.Context) {
	format := c.Param("format")
	ctx := c.Request.Context()

	var (
		buf      *bytes.Buffer
		filename string
		err      error
	)
	switch format {
	case service.FormatExcel:
		buf, filename, err = h.svc.ExportExcel(ctx)
	case service.FormatCSV:
		buf, filename, err = h.svc.ExportCSV(ctx)
	case service.FormatJSON:
		buf, filename, err = h.svc.ExportJSON(ctx)
	case service.FormatICS:
		buf, filename, err = h.svc.ExportICS(ctx)
	default:
		response.BadRequest(c, 10001, "不支持的导出格式: "+format)
		return
	}
	if err != nil {
		handleTransferError(c, err)
		return
	}
	response.Attachment(c, filename, exportContentTypes[format], buf.Bytes())
}

// uploadedFile multipart 取 file 字段，否则读请求体
func uploadedFile(c *gin.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, errors.New("缺少上传文件 file")
		}
		return fh.Open()
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil, errors.New("请求体为空")
	}
	return c.Request.Body, nil
}

func handleTransferError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrImportFormat):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20401, "导入文件格式错误", err.Error())
	case errors.Is(err, service.ErrImportEmpty):
		response.BadRequest(c, 20402, "导入文件中没有课程数据")
	case errors.Is(err, service.ErrImportICSParse):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20403, "ICS 文件解析失败", err.Error())
	case errors.Is(err, service.ErrImportICSEmpty):
		response.BadRequest(c, 20404, "ICS 文件中未发现有效课程事件")
	case errors.Is(err, service.ErrImportICSFetch):
		response.ErrorWithDetails(c, http.StatusBadGateway, 20405, "获取 ICS 文件失败", err.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		response.ErrorWithDetails(c, http.StatusInternalServerError, 20406, "生成导出文件失败", err.Error())
	default:
		handleTimetableError(c, err)
	}
}
