package service

import (
	"context"

	"webrag/internal/data"
	"webrag/internal/fetcher"
)

// Service 层只依赖窄接口，*data.Data 与各客户端是生产实现

// Fetcher 抓取并抽取网页正文
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Page, error)
}

// Embedder 文本向量化，维度全系统一致
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorIndex 向量库读写契约
type VectorIndex interface {
	UpsertChunks(ctx context.Context, points []data.ChunkPoint) error
	SearchSimilar(ctx context.Context, vector []float32, topK uint64) ([]data.SearchHit, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	CountByDocument(ctx context.Context, documentID string) (uint64, error)
}

// TaskQueue 任务入队 (at-least-once 投递)
type TaskQueue interface {
	EnqueueTask(ctx context.Context, documentID string) error
}

// Archiver 原始快照归档 (best-effort)
type Archiver interface {
	ArchiveSnapshot(ctx context.Context, documentID string, raw []byte)
}

// Generator 外部回答生成能力
type Generator interface {
	GenerateAnswer(ctx context.Context, question string, contextChunks []string) (string, error)
}
