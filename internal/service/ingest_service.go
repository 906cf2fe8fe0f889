package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"webrag/internal/chunker"
	"webrag/internal/core"
	"webrag/internal/data"
	"webrag/internal/fetcher"
	"webrag/internal/model"
	"webrag/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// embedBatchSize 单次 embedding 请求的 chunk 数上限
const embedBatchSize = 32

// IngestService 摄取编排：驱动任务走完
// PENDING -> PROCESSING -> COMPLETED / FAILED
type IngestService struct {
	repo    repository.DocumentRepository
	queue   TaskQueue
	fetcher Fetcher
	chunker *chunker.Chunker
	embed   Embedder
	index   VectorIndex
	archive Archiver // 可为 nil (测试环境)
}

func NewIngestService(
	repo repository.DocumentRepository,
	queue TaskQueue,
	f Fetcher,
	ch *chunker.Chunker,
	embed Embedder,
	index VectorIndex,
	archive Archiver,
) *IngestService {
	return &IngestService{
		repo:    repo,
		queue:   queue,
		fetcher: f,
		chunker: ch,
		embed:   embed,
		index:   index,
		archive: archive,
	}
}

// Submit 提交摄取任务。幂等：同一 URL 重复提交返回已有任务，不产生新任务
// FAILED 任务不自动重试，恢复走显式 Reingest
func (s *IngestService) Submit(ctx context.Context, rawURL string) (*model.Document, bool, error) {
	// 1. 校验 URL
	if err := fetcher.ValidateURL(rawURL); err != nil {
		return nil, false, err
	}

	// 2. 幂等创建
	doc, created, err := s.repo.CreateIfAbsent(ctx, rawURL)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return doc, false, nil
	}

	// 3. 入队。失败则把任务标记为 FAILED，避免留下永远无人处理的 PENDING
	if err := s.queue.EnqueueTask(ctx, doc.ID); err != nil {
		log.Printf("❌ 任务入队失败: %s (%v)", doc.ID, err)
		_, _ = s.repo.Transition(ctx, doc.ID, model.StatusPending, model.StatusFailed,
			"queue error: "+err.Error())
		return nil, false, fmt.Errorf("任务入队失败: %v", err)
	}

	log.Printf("🚀 已受理摄取任务: %s (%s)", doc.ID, rawURL)
	return doc, true, nil
}

// Process 由 Worker 执行的单任务流水线
// 队列是 at-least-once 投递，第 1 步的 CAS 是唯一的并发守卫：
// 抢不到 PENDING -> PROCESSING 的投递直接丢弃，无任何副作用
func (s *IngestService) Process(ctx context.Context, documentID string) error {
	// 1. CAS 抢占任务
	ok, err := s.repo.Transition(ctx, documentID, model.StatusPending, model.StatusProcessing, "")
	if err != nil {
		return err
	}
	if !ok {
		log.Printf("⏭️ 任务 %s 不在 PENDING，跳过 (重复投递)", documentID)
		return nil
	}

	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		// 任务不能留在 PROCESSING
		return s.fail(ctx, documentID, err)
	}

	// 2. 抓取
	page, err := s.fetcher.Fetch(ctx, doc.SourceURL)
	if err != nil {
		return s.fail(ctx, documentID, err)
	}

	// 3. 切分 (正文为空在 fetcher 已拦截，这里兜底零切分)
	chunks := s.chunker.Split(page.Text)
	if len(chunks) == 0 {
		return s.fail(ctx, documentID, fmt.Errorf("%w: 切分后无有效片段", core.ErrExtraction))
	}
	log.Printf("[%s] 正文切分为 %d 个片段", documentID, len(chunks))

	// 4. 向量化：全部成功才继续，任何一批失败整个任务失败
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch, err := s.embed.EmbedBatch(ctx, chunks[start:end])
		if err != nil {
			return s.fail(ctx, documentID, err)
		}
		vectors = append(vectors, batch...)
	}

	// 5. 组装数据点，一次性批量写入 (all-or-nothing：写入前索引里没有任何该任务的点)
	points := make([]data.ChunkPoint, 0, len(chunks))
	for i, text := range chunks {
		points = append(points, data.ChunkPoint{
			ID:         chunkPointID(documentID, i),
			Vector:     vectors[i],
			Text:       text,
			DocumentID: documentID,
			URL:        doc.SourceURL,
			Title:      page.Title,
			ChunkIndex: i,
		})
	}
	if err := s.index.UpsertChunks(ctx, points); err != nil {
		return s.fail(ctx, documentID, err)
	}
	log.Printf("[%s] 已写入 %d 个向量点", documentID, len(points))

	// 6. 原始快照归档 (失败不影响任务结果)
	if s.archive != nil {
		s.archive.ArchiveSnapshot(ctx, documentID, page.Raw)
	}

	// 7. 回填元数据并收尾
	meta, _ := json.Marshal(map[string]interface{}{
		"title":         page.Title,
		"chunk_count":   len(chunks),
		"content_bytes": len(page.Raw),
	})
	if err := s.repo.SetMeta(ctx, documentID, datatypes.JSON(meta)); err != nil {
		log.Printf("⚠️ [%s] 元数据回填失败: %v", documentID, err)
	}

	ok, err = s.repo.Transition(ctx, documentID, model.StatusProcessing, model.StatusCompleted, "")
	if err != nil {
		return err
	}
	if !ok {
		// PROCESSING 归我们独占，走到这里说明任务被外部动过
		log.Printf("⚠️ 任务 %s 收尾 CAS 失败", documentID)
		return nil
	}

	log.Printf("✅ [%s] 摄取完成 (%d chunks)", documentID, len(chunks))
	return nil
}

// Reingest 显式重新摄取：删旧 chunk -> 重置任务 -> 重新入队
// 只允许终态任务重置 (PENDING / PROCESSING 的任务还在流水线上)
func (s *IngestService) Reingest(ctx context.Context, documentID string) error {
	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if !doc.IsTerminal() {
		return fmt.Errorf("%w: 任务尚未结束，无法重新摄取", core.ErrConflict)
	}

	if err := s.index.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.repo.Reset(ctx, documentID); err != nil {
		return err
	}
	if err := s.queue.EnqueueTask(ctx, documentID); err != nil {
		_, _ = s.repo.Transition(ctx, documentID, model.StatusPending, model.StatusFailed,
			"queue error: "+err.Error())
		return fmt.Errorf("任务入队失败: %v", err)
	}

	log.Printf("🔄 任务 %s 已重新入队", documentID)
	return nil
}

// Delete 删除任务及其全部 chunk
func (s *IngestService) Delete(ctx context.Context, documentID string) error {
	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status == model.StatusProcessing {
		return fmt.Errorf("%w: 任务处理中，无法删除", core.ErrConflict)
	}

	// 先删向量再删任务记录，保证不会出现指向已删任务的孤儿 chunk 可被长期检索
	if err := s.index.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, documentID)
}

// Status 查询任务状态，附带索引里的实时 chunk 数
func (s *IngestService) Status(ctx context.Context, documentID string) (*model.Document, uint64, error) {
	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.index.CountByDocument(ctx, documentID)
	if err != nil {
		// 向量库暂不可用不影响状态查询本身
		log.Printf("⚠️ chunk 计数失败: %s (%v)", documentID, err)
		count = 0
	}
	return doc, count, nil
}

// fail 统一失败收尾：记录错误文本并流转到 FAILED
// Process 退出时任务绝不会停留在 PROCESSING
func (s *IngestService) fail(ctx context.Context, documentID string, cause error) error {
	log.Printf("❌ [%s] 摄取失败: %v", documentID, cause)
	ok, err := s.repo.Transition(ctx, documentID, model.StatusProcessing, model.StatusFailed, cause.Error())
	if err != nil {
		log.Printf("❌ [%s] FAILED 流转写库失败: %v", documentID, err)
		return err
	}
	if !ok {
		log.Printf("⚠️ [%s] FAILED 流转 CAS 失败", documentID)
	}
	return cause
}

// chunkPointID document_id:index 的确定性 UUID
// 同一任务同一下标永远得到同一个点 ID，upsert 即覆盖
func chunkPointID(documentID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(documentID+":"+strconv.Itoa(index))).String()
}
