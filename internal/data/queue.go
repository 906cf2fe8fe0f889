package data

import (
	"context"
	"time"
)

// Redis List 作为任务队列：LPush 入队，BLPop 出队
// 投递语义是 at-least-once，幂等性由任务状态机的 CAS 流转保证

// EnqueueTask 入队一个任务 ID
func (d *Data) EnqueueTask(ctx context.Context, documentID string) error {
	return d.Redis.LPush(ctx, d.cfg.Ingest.QueueKey, documentID).Err()
}

// DequeueTask 阻塞式取出一个任务 ID
func (d *Data) DequeueTask(ctx context.Context, timeout time.Duration) (string, error) {
	result, err := d.Redis.BLPop(ctx, timeout, d.cfg.Ingest.QueueKey).Result()
	if err != nil {
		return "", err
	}
	// BLPop 返回 [key, value]
	return result[1], nil
}
