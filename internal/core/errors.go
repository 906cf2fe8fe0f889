package core

import "errors"

// 错误种类哨兵。各层用 fmt.Errorf("%w: ...") 包装，
// Handler / Worker 边界用 errors.Is 区分并决定状态码或 error_message
var (
	ErrValidation = errors.New("validation error")
	ErrFetch      = errors.New("fetch error")
	ErrExtraction = errors.New("extraction error")
	ErrEmbedding  = errors.New("embedding error")
	ErrIndex      = errors.New("index error")
	ErrGeneration = errors.New("generation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)
