package handler

import (
	"errors"
	"net/http"
	"time"

	"webrag/internal/core"
	"webrag/internal/dto"
	"webrag/internal/service"

	"github.com/gin-gonic/gin"
)

type IngestHandler struct {
	svc *service.IngestService
}

func NewIngestHandler(svc *service.IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// Submit 受理 URL 摄取
// POST /api/v1/documents
func (h *IngestHandler) Submit(c *gin.Context) {
	var req dto.IngestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, created, err := h.svc.Submit(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, core.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dto.IngestResp{
		DocumentID:     doc.ID,
		StatusEndpoint: "/api/v1/documents/" + doc.ID,
	}

	// 重复提交：返回已有任务的标识，不报错 (幂等)
	if !created {
		resp.Message = "该 URL 已提交过，返回已有任务"
		resp.Duplicate = true
		c.JSON(http.StatusOK, resp)
		return
	}

	resp.Message = "URL 已受理，后台摄取中"
	c.JSON(http.StatusAccepted, resp)
}

// Status 任务状态查询
// GET /api/v1/documents/:id
func (h *IngestHandler) Status(c *gin.Context) {
	id := c.Param("id")

	doc, chunkCount, err := h.svc.Status(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.DocumentStatusResp{
		DocumentID:   doc.ID,
		SourceURL:    doc.SourceURL,
		Status:       doc.Status,
		ErrorMessage: doc.ErrorMessage,
		Meta:         doc.Meta,
		ChunkCount:   chunkCount,
		CreatedAt:    doc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    doc.UpdatedAt.Format(time.RFC3339),
	})
}

// Reingest 显式重新摄取 (删旧 chunk 后重新排队)
// POST /api/v1/documents/:id/reingest
func (h *IngestHandler) Reingest(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.Reingest(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
		case errors.Is(err, core.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":     "任务已重新入队",
		"document_id": id,
	})
}

// Delete 删除任务及其全部向量数据
// DELETE /api/v1/documents/:id
func (h *IngestHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
		case errors.Is(err, core.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "任务已删除", "document_id": id})
}
