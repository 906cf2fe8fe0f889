package service

import (
	"context"
	"sync"
	"testing"

	"webrag/internal/data"
	"webrag/internal/fetcher"
	"webrag/internal/model"
	"webrag/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ---------- 测试替身 ----------

type fakeFetcher struct {
	page  *fetcher.Page
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*fetcher.Page, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

type fakeEmbedder struct {
	dim     int
	err     error
	queries []string
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, f.dim)
		// 同一文本永远得到同一向量
		for j := range v {
			v[j] = float32(len(text)+j) / 100.0
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

type fakeIndex struct {
	mu        sync.Mutex
	points    map[string]data.ChunkPoint // 按点 ID 存，覆盖语义与 Qdrant 一致
	upsertErr error
	searchErr error
	hits      []data.SearchHit
	lastTopK  uint64
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: map[string]data.ChunkPoint{}}
}

func (f *fakeIndex) UpsertChunks(ctx context.Context, points []data.ChunkPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, p := range points {
		f.points[p.ID] = p
	}
	return nil
}

func (f *fakeIndex) SearchSimilar(ctx context.Context, vector []float32, topK uint64) ([]data.SearchHit, error) {
	f.lastTopK = topK
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.points {
		if p.DocumentID == documentID {
			delete(f.points, id)
		}
	}
	return nil
}

func (f *fakeIndex) CountByDocument(ctx context.Context, documentID string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n uint64
	for _, p := range f.points {
		if p.DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

func (f *fakeIndex) pointsFor(documentID string) []data.ChunkPoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []data.ChunkPoint
	for _, p := range f.points {
		if p.DocumentID == documentID {
			out = append(out, p)
		}
	}
	return out
}

type fakeQueue struct {
	ids []string
	err error
}

func (f *fakeQueue) EnqueueTask(ctx context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, documentID)
	return nil
}

type fakeGenerator struct {
	answer    string
	err       error
	called    int
	gotChunks []string
}

func (f *fakeGenerator) GenerateAnswer(ctx context.Context, question string, contextChunks []string) (string, error) {
	f.called++
	f.gotChunks = contextChunks
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

// ---------- 公共装配 ----------

func newTestRepo(t *testing.T) repository.DocumentRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Document{}))
	return repository.NewDocumentRepository(db)
}
