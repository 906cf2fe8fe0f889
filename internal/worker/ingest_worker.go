package worker

import (
	"context"
	"log"
	"time"

	"webrag/internal/service"
)

// Dequeuer 阻塞式取任务 (生产实现是 Redis BLPop)
type Dequeuer interface {
	DequeueTask(ctx context.Context, timeout time.Duration) (string, error)
}

// IngestWorker 从队列拿任务并驱动摄取流水线
type IngestWorker struct {
	queue Dequeuer
	svc   *service.IngestService
}

func NewIngestWorker(queue Dequeuer, svc *service.IngestService) *IngestWorker {
	return &IngestWorker{queue: queue, svc: svc}
}

// Start 启动 Worker (非阻塞，内部起 numWorkers 个协程)
func (w *IngestWorker) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	log.Printf("🚀 启动 %d 个 Ingest Worker，开始监听任务队列...", numWorkers)

	for i := 0; i < numWorkers; i++ {
		go w.processLoop(ctx, i)
	}
}

func (w *IngestWorker) processLoop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Worker-%d] 收到退出信号", workerID)
			return
		default:
			// 1. 阻塞式获取任务
			documentID, err := w.queue.DequeueTask(ctx, 0)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// Redis 偶尔连接超时是正常的，不要 panic
				log.Printf("[Worker-%d] 等待任务中... (%v)", workerID, err)
				time.Sleep(3 * time.Second)
				continue
			}

			log.Printf("[Worker-%d] 收到任务: %s", workerID, documentID)

			// 2. 执行摄取流程。错误已在 Service 内落到任务记录，
			// 这里只打日志，Worker 本身永不退出
			if err := w.svc.Process(ctx, documentID); err != nil {
				log.Printf("[Worker-%d] ❌ 处理失败: %s, 错误: %v", workerID, documentID, err)
			} else {
				log.Printf("[Worker-%d] ✅ 处理完成: %s", workerID, documentID)
			}
		}
	}
}
