package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"webrag/internal/core"
)

// InsufficientContextAnswer 空检索结果时的固定回答
// 策略：宁可拒答，不把空上下文交给生成端去自由发挥
const InsufficientContextAnswer = "I could not find any relevant information in the knowledge base."

// ContextItem 返回给调用方的检索上下文条目
type ContextItem struct {
	Text  string  `json:"text"`
	URL   string  `json:"url"`
	Score float32 `json:"score"`
}

// QueryResult 问答结果
type QueryResult struct {
	Answer  string        `json:"answer"`
	Context []ContextItem `json:"context"`
}

// QueryService 检索-生成编排：embed -> search -> generate
// 全程同步，不经过任务队列
type QueryService struct {
	embed       Embedder
	index       VectorIndex
	generator   Generator
	topKDefault int
	topKMax     int
}

func NewQueryService(embed Embedder, index VectorIndex, generator Generator, topKDefault, topKMax int) *QueryService {
	if topKDefault <= 0 {
		topKDefault = 3
	}
	if topKMax < topKDefault {
		topKMax = topKDefault
	}
	return &QueryService{
		embed:       embed,
		index:       index,
		generator:   generator,
		topKDefault: topKDefault,
		topKMax:     topKMax,
	}
}

// Answer 回答问题
// 生成失败时 QueryResult 里仍带着检索上下文，error 返回 ErrGeneration，
// 由 Handler 决定如何呈现 (上下文随错误一起返回，方便调用方定位)
func (s *QueryService) Answer(ctx context.Context, question string, topK int) (*QueryResult, error) {
	// 1. 入参校验
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: 问题不能为空", core.ErrValidation)
	}
	if topK <= 0 {
		topK = s.topKDefault
	}
	if topK > s.topKMax {
		topK = s.topKMax
	}

	// 2. 问题向量化 (与摄取同一模型同一维度，维度错误在 embedding 层 fail fast)
	vector, err := s.embed.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	// 3. 向量检索
	hits, err := s.index.SearchSimilar(ctx, vector, uint64(topK))
	if err != nil {
		return nil, err
	}

	// 分数降序；同分按点 ID 升序，保证结果可复现
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	// 4. 空结果：拒答，不调用生成端
	if len(hits) == 0 {
		log.Printf("🔍 检索无结果: %q", question)
		return &QueryResult{Answer: InsufficientContextAnswer, Context: []ContextItem{}}, nil
	}

	items := make([]ContextItem, 0, len(hits))
	chunkTexts := make([]string, 0, len(hits))
	for _, h := range hits {
		items = append(items, ContextItem{Text: h.Text, URL: h.URL, Score: h.Score})
		chunkTexts = append(chunkTexts, h.Text)
	}

	// 5. 生成回答
	answer, err := s.generator.GenerateAnswer(ctx, question, chunkTexts)
	if err != nil {
		// 上下文照常返回，错误交给上层
		return &QueryResult{Context: items}, err
	}

	return &QueryResult{Answer: answer, Context: items}, nil
}
