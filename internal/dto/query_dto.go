package dto

// QueryReq 问答请求
type QueryReq struct {
	Question string `json:"question" binding:"required"`
	TopK     int    `json:"top_k"` // 0 表示用默认值
}
