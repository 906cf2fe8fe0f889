package model

import (
	"time"

	"gorm.io/datatypes"
)

// 任务状态机: PENDING -> PROCESSING -> COMPLETED / FAILED
// 终态不再流转，重试必须通过显式 reingest
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Document 一次 URL 摄取任务及其生命周期
type Document struct {
	// UUID 主键，创建时生成，任务存续期间不变
	ID string `gorm:"type:uuid;primarykey" json:"id"`

	// 唯一约束：同一个 URL 只允许存在一个任务
	SourceURL string `gorm:"uniqueIndex;not null" json:"source_url"`

	Status       string `gorm:"size:20;default:'PENDING';index" json:"status"`
	ErrorMessage string `gorm:"type:text" json:"error_message"`

	// 摄取完成后回填的元数据
	// {"title": "...", "chunk_count": 5, "content_bytes": 12345}
	Meta datatypes.JSON `json:"meta"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal 是否已到达终态
func (d *Document) IsTerminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusFailed
}
