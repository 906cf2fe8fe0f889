package dto

import "gorm.io/datatypes"

// IngestReq 提交摄取请求
type IngestReq struct {
	URL string `json:"url" binding:"required"`
}

// IngestResp 受理响应 (202)
type IngestResp struct {
	Message        string `json:"message"`
	DocumentID     string `json:"document_id"`
	StatusEndpoint string `json:"status_endpoint"`
	Duplicate      bool   `json:"duplicate"` // 重复提交时为 true，返回已有任务
}

// DocumentStatusResp 状态查询响应
type DocumentStatusResp struct {
	DocumentID   string         `json:"document_id"`
	SourceURL    string         `json:"source_url"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Meta         datatypes.JSON `json:"meta,omitempty"`
	ChunkCount   uint64         `json:"chunk_count"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
}
