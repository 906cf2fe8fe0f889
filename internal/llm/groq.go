package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"webrag/internal/core"
)

// 约束生成只依据检索上下文，不允许自由发挥
const systemPrompt = "You are a helpful AI assistant. Answer the user's question based ONLY on the context provided. " +
	"If the context does not contain the answer, state that you cannot answer the question with the given information."

// Client Groq Chat Completions 客户端 (OpenAI 兼容 REST)
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
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
		client:  &http.Client{Timeout: t},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateAnswer 用检索到的上下文 + 问题生成回答
func (c *Client) GenerateAnswer(ctx context.Context, question string, contextChunks []string) (string, error) {
	contextStr := strings.Join(contextChunks, "\n---\n")

	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("CONTEXT:\n%s\n\nQUESTION:\n%s", contextStr, question)},
		},
	}
	data, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w: groq 返回 %s: %s", core.ErrGeneration, resp.Status, string(body))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrGeneration, err)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("%w: 响应解析失败: %v", core.ErrGeneration, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: 空回答", core.ErrGeneration)
	}
	return out.Choices[0].Message.Content, nil
}
