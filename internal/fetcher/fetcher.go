package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"webrag/internal/core"

	"github.com/PuerkitoBio/goquery"
)

// Page 一次抓取的结果
type Page struct {
	Title string
	Text  string // 抽取后的正文纯文本
	Raw   []byte // 原始响应体 (归档用)
}

// Client 网页抓取器。超时 / 重定向 / 非 200 / 超大页面都在这一层处理
type Client struct {
	http     *http.Client
	maxBytes int
}

func New(timeout time.Duration, maxBytes int) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 1500000
	}
	return &Client{
		// 重定向走 http.Client 默认策略 (最多 10 跳)
		http:     &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// ValidateURL 校验是否为合法的绝对 http/https URL
func ValidateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: 非法 URL: %v", core.ErrValidation, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: URL 必须是 http/https 绝对地址", core.ErrValidation)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: URL 缺少 host", core.ErrValidation)
	}
	return nil
}

// Fetch 抓取页面并抽取正文
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrFetch, err)
	}
	req.Header.Set("User-Agent", "webrag/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		// 网络错误与超时都落在这里，错误文本里自带 timeout 字样
		return nil, fmt.Errorf("%w: %v", core.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: 状态码 %d (%s)", core.ErrFetch, resp.StatusCode, rawURL)
	}
	if resp.ContentLength > 0 && resp.ContentLength > int64(c.maxBytes) {
		return nil, fmt.Errorf("%w: 页面过大 (%d bytes)", core.ErrFetch, resp.ContentLength)
	}

	limited := io.LimitedReader{R: resp.Body, N: int64(c.maxBytes)}
	raw, err := io.ReadAll(&limited)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取响应失败: %v", core.ErrFetch, err)
	}

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	// 目前只处理 html / plain
	if strings.Contains(ct, "text/plain") {
		text := cleanWhitespace(string(raw))
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: empty content", core.ErrExtraction)
		}
		return &Page{Title: guessTitleFromText(text), Text: text, Raw: raw}, nil
	}
	if ct != "" && !strings.Contains(ct, "text/html") {
		return nil, fmt.Errorf("%w: 不支持的 Content-Type: %s", core.ErrFetch, ct)
	}

	title, text, err := extractMainText(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrExtraction, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty content", core.ErrExtraction)
	}
	return &Page{Title: title, Text: text, Raw: raw}, nil
}

// extractMainText 抽取正文 (简单规则: article/main 范围内的标题 + 段落 + 列表)
func extractMainText(raw []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", "", err
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())

	// 先剔除脚本和样式
	doc.Find("script, style, noscript").Remove()

	sel := doc.Find("main, article")
	if sel.Length() == 0 {
		sel = doc.Selection // fallback: 整个文档
	}
	var parts []string
	sel.Find("h1,h2,h3,p,li").Each(func(_ int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if len(t) > 0 {
			parts = append(parts, t)
		}
	})
	text := cleanWhitespace(strings.Join(parts, "\n"))
	return title, text, nil
}

var wsRX = regexp.MustCompile(`\s+\n`)

func cleanWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return wsRX.ReplaceAllString(s, "\n")
}

func guessTitleFromText(s string) string {
	line := strings.SplitN(strings.TrimSpace(s), "\n", 2)[0]
	if len(line) > 120 {
		line = line[:120]
	}
	return line
}
