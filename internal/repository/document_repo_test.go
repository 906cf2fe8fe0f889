package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"webrag/internal/core"
	"webrag/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 测试用内存库。限制单连接，避免每个连接各开一个内存库
func newTestRepo(t *testing.T) DocumentRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.Document{}))
	return NewDocumentRepository(db)
}

func TestCreateIfAbsentIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, created, err := repo.CreateIfAbsent(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, model.StatusPending, first.Status)

	// 同一 URL 第二次提交：返回同一个任务，不创建新记录
	second, created, err := repo.CreateIfAbsent(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// 不同 URL 互不影响
	other, created, err := repo.CreateIfAbsent(ctx, "https://example.com/b")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestTransitionCAS(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc, _, err := repo.CreateIfAbsent(ctx, "https://example.com/a")
	require.NoError(t, err)

	// PENDING -> PROCESSING 成功
	ok, err := repo.Transition(ctx, doc.ID, model.StatusPending, model.StatusProcessing, "")
	require.NoError(t, err)
	assert.True(t, ok)

	// 再次从 PENDING 流转：当前已是 PROCESSING，必须失败且无副作用
	ok, err = repo.Transition(ctx, doc.ID, model.StatusPending, model.StatusProcessing, "")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, got.Status)

	// PROCESSING -> FAILED 记录错误
	ok, err = repo.Transition(ctx, doc.ID, model.StatusProcessing, model.StatusFailed, "fetch error: 状态码 404")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "404")
}

func TestTransitionUpdatesTimestamp(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc, _, err := repo.CreateIfAbsent(ctx, "https://example.com/a")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	ok, err := repo.Transition(ctx, doc.ID, model.StatusPending, model.StatusProcessing, "")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(doc.UpdatedAt))
}

func TestTransitionConcurrentExactlyOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc, _, err := repo.CreateIfAbsent(ctx, "https://example.com/a")
	require.NoError(t, err)

	// 模拟重复投递：多个 Worker 同时抢同一个 PENDING 任务
	const workers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Transition(ctx, doc.ID, model.StatusPending, model.StatusProcessing, "")
			assert.NoError(t, err)
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for ok := range wins {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "PENDING -> PROCESSING 只允许成功一次")
}

func TestTransitionMissingJob(t *testing.T) {
	repo := newTestRepo(t)
	ok, err := repo.Transition(context.Background(), "no-such-id", model.StatusPending, model.StatusProcessing, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Get(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestResetClearsErrorAndMeta(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc, _, err := repo.CreateIfAbsent(ctx, "https://example.com/a")
	require.NoError(t, err)

	_, err = repo.Transition(ctx, doc.ID, model.StatusPending, model.StatusProcessing, "")
	require.NoError(t, err)
	_, err = repo.Transition(ctx, doc.ID, model.StatusProcessing, model.StatusFailed, "boom")
	require.NoError(t, err)
	require.NoError(t, repo.SetMeta(ctx, doc.ID, datatypes.JSON(`{"chunk_count":5}`)))

	require.NoError(t, repo.Reset(ctx, doc.ID))

	got, err := repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Empty(t, got.ErrorMessage)
	assert.Empty(t, got.Meta)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc, _, err := repo.CreateIfAbsent(ctx, "https://example.com/a")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, doc.ID))
	_, err = repo.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	// 删不存在的任务报 not found
	assert.ErrorIs(t, repo.Delete(ctx, doc.ID), core.ErrNotFound)
}
