package repository

import (
	"context"
	"errors"
	"fmt"

	"webrag/internal/core"
	"webrag/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentRepository 任务存储 (Job Store)
// 状态机的唯一并发安全原语是 Transition 的 CAS 语义
type DocumentRepository interface {
	// CreateIfAbsent 幂等创建：URL 已存在则返回已有任务 (created=false)
	CreateIfAbsent(ctx context.Context, sourceURL string) (*model.Document, bool, error)

	// Transition CAS 状态流转：当前状态不等于 from 时返回 false 且不做任何修改
	Transition(ctx context.Context, id string, from string, to string, errMsg string) (bool, error)

	Get(ctx context.Context, id string) (*model.Document, error)

	// SetMeta 回填摄取元数据 (COMPLETED 前调用)
	SetMeta(ctx context.Context, id string, meta datatypes.JSON) error

	// Reset 重置任务回 PENDING (显式 reingest 用，清空错误与元数据)
	Reset(ctx context.Context, id string) error

	Delete(ctx context.Context, id string) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) CreateIfAbsent(ctx context.Context, sourceURL string) (*model.Document, bool, error) {
	// 1. 先查已有任务
	var existing model.Document
	err := r.db.WithContext(ctx).Where("source_url = ?", sourceURL).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	// 2. 不存在则创建 (PENDING)
	doc := &model.Document{
		ID:        uuid.New().String(),
		SourceURL: sourceURL,
		Status:    model.StatusPending,
	}
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		// 并发提交同一 URL 时唯一索引会拒绝第二次插入，回查胜出者
		var winner model.Document
		if qerr := r.db.WithContext(ctx).Where("source_url = ?", sourceURL).First(&winner).Error; qerr == nil {
			return &winner, false, nil
		}
		return nil, false, err
	}
	return doc, true, nil
}

func (r *documentRepository) Transition(ctx context.Context, id string, from string, to string, errMsg string) (bool, error) {
	updates := map[string]interface{}{
		"status":        to,
		"error_message": errMsg,
	}

	// CAS: WHERE 带上 from 状态，RowsAffected == 0 即竞争失败
	res := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *documentRepository) Get(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: document %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) SetMeta(ctx context.Context, id string, meta datatypes.JSON) error {
	return r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Update("meta", meta).Error
}

func (r *documentRepository) Reset(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.StatusPending,
			"error_message": "",
			"meta":          nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, id)
	}
	return nil
}

func (r *documentRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: document %s", core.ErrNotFound, id)
	}
	return nil
}
