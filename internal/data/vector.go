package data

import (
	"context"
	"fmt"

	"webrag/internal/core"

	"github.com/qdrant/go-client/qdrant"
)

// ChunkPoint 写入向量库的一个数据点 (chunk + 向量 + 元数据)
type ChunkPoint struct {
	ID         string // UUID，由 document_id:chunk_index 确定性生成
	Vector     []float32
	Text       string
	DocumentID string
	URL        string
	Title      string
	ChunkIndex int
}

// SearchHit 检索命中结果
type SearchHit struct {
	ID         string
	Score      float32
	Text       string
	DocumentID string
	URL        string
}

// UpsertChunks 将一个任务的全部 chunk 一次性批量写入
// Wait=true：调用返回后数据即可被检索到 (保证任务 COMPLETED 时 chunk 已可见)
// Point ID 确定性生成，重复投递 / 重新摄取会覆盖而非重复写入
func (d *Data) UpsertChunks(ctx context.Context, points []ChunkPoint) error {
	if len(points) == 0 {
		return nil
	}

	upsertPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payloadMap := map[string]interface{}{
			"text":        p.Text,
			"document_id": p.DocumentID,
			"url":         p.URL,
			"title":       p.Title,
			"chunk_index": p.ChunkIndex,
		}
		upsertPoints = append(upsertPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payloadMap),
		})
	}

	waitTrue := true
	_, err := d.Qdrant.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: CollectionName,
		Points:         upsertPoints,
		Wait:           &waitTrue,
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant upsert: %v", core.ErrIndex, err)
	}
	return nil
}

// SearchSimilar 核心检索功能，按相似度降序返回 topK 个 chunk
func (d *Data) SearchSimilar(ctx context.Context, vector []float32, topK uint64) ([]SearchHit, error) {
	queryVal := make([]float32, len(vector))
	copy(queryVal, vector)

	points, err := d.Qdrant.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(queryVal...),
		Limit:          &topK,
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{
				Enable: true,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant query: %v", core.ErrIndex, err)
	}

	var results []SearchHit
	for _, point := range points {
		hit := SearchHit{Score: point.Score}
		if point.Id != nil {
			hit.ID = point.Id.GetUuid()
		}
		if val, ok := point.Payload["text"]; ok {
			hit.Text = val.GetStringValue()
		}
		if val, ok := point.Payload["document_id"]; ok {
			hit.DocumentID = val.GetStringValue()
		}
		if val, ok := point.Payload["url"]; ok {
			hit.URL = val.GetStringValue()
		}
		results = append(results, hit)
	}
	return results, nil
}

// DeleteByDocument 删除一个任务的全部 chunk (删除任务 / 重新摄取时使用)
func (d *Data) DeleteByDocument(ctx context.Context, documentID string) error {
	waitTrue := true
	_, err := d.Qdrant.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("document_id", documentID),
					},
				},
			},
		},
		Wait: &waitTrue,
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant delete: %v", core.ErrIndex, err)
	}
	return nil
}

// CountByDocument 统计一个任务当前已入库的 chunk 数 (状态查询接口展示用)
func (d *Data) CountByDocument(ctx context.Context, documentID string) (uint64, error) {
	exact := true
	count, err := d.Qdrant.Count(ctx, &qdrant.CountPoints{
		CollectionName: CollectionName,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		},
		Exact: &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: qdrant count: %v", core.ErrIndex, err)
	}
	return count, nil
}
