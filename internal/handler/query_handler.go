package handler

import (
	"errors"
	"net/http"

	"webrag/internal/core"
	"webrag/internal/dto"
	"webrag/internal/service"

	"github.com/gin-gonic/gin"
)

type QueryHandler struct {
	svc *service.QueryService
}

func NewQueryHandler(svc *service.QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

// Query 同步问答
// POST /api/v1/query
func (h *QueryHandler) Query(c *gin.Context) {
	var req dto.QueryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Answer(c.Request.Context(), req.Question, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, core.ErrGeneration):
			// 生成失败时把已检索到的上下文一并返回，方便调用方定位
			payload := gin.H{"error": err.Error()}
			if result != nil {
				payload["context"] = result.Context
			}
			c.JSON(http.StatusBadGateway, payload)
		case errors.Is(err, core.ErrEmbedding), errors.Is(err, core.ErrIndex):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
