package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"webrag/internal/core"
)

// Client OpenAI 兼容的 Embedding 服务客户端
// 模型与维度是全系统常量：ingestion 与 query 必须使用同一配置
type Client struct {
	baseURL string
	apiKey  string
	model   string
	dim     int
	client  *http.Client
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Dim     int
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		dim:     cfg.Dim,
		client:  &http.Client{Timeout: t},
	}
}

// Dimension 配置的向量维度
func (c *Client) Dimension() int { return c.dim }

// Model 模型标识 (同一模型同一版本对相同文本产出相同向量)
func (c *Client) Model() string { return c.model }

// EmbedBatch 批量向量化，返回顺序与输入一致
// 任何一条失败即整体失败 —— 调用方保证 all-or-nothing 写入
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := map[string]interface{}{
		"input": texts,
		"model": c.model,
	}
	data, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: embedding 服务返回 %s", core.ErrEmbedding, resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrEmbedding, err)
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("%w: 响应解析失败: %v", core.ErrEmbedding, err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("%w: 期望 %d 条向量，实际 %d 条", core.ErrEmbedding, len(texts), len(out.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range out.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("%w: 非法 index %d", core.ErrEmbedding, item.Index)
		}
		// ⚠️ 维度不一致是配置错误，必须 fail fast
		if len(item.Embedding) != c.dim {
			return nil, fmt.Errorf("%w: 维度不匹配 (期望 %d, 实际 %d)", core.ErrEmbedding, c.dim, len(item.Embedding))
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: 第 %d 条向量缺失", core.ErrEmbedding, i)
		}
	}
	return vectors, nil
}

// Embed 单条向量化 (query 路径)
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
