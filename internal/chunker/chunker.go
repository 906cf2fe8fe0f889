package chunker

import (
	"strings"
	"unicode/utf8"
)

// Chunker 把正文切成有界、带重叠的片段
// 尺寸与重叠按字符 (rune) 计，切点优先选择句子 / 段落边界
type Chunker struct {
	size    int // 单段最大长度
	overlap int // 相邻段重叠长度
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	// 重叠过大时窗口无法前进，强制收敛
	if overlap >= size/2 {
		overlap = size / 5
	}
	return &Chunker{size: size, overlap: overlap}
}

// 自然边界字符：句号 / 问叹号 / 换行
func isBreakRune(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '\n':
		return true
	}
	return false
}

// Split 切分文本。空输入返回 nil
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			// 在窗口后半段往回找自然边界，找不到就硬切
			cut := -1
			for i := end - 1; i > start+c.size/2; i-- {
				if isBreakRune(runes[i]) {
					cut = i + 1 // 边界字符归前一段
					break
				}
			}
			if cut > 0 {
				end = cut
			}
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}

		if end == len(runes) {
			break
		}
		start = end - c.overlap
	}
	return chunks
}

// MaxSize 单段上限 (测试与配置校验用)
func (c *Chunker) MaxSize() int { return c.size }

// 辅助函数：统计 UTF-8 字符数
func RuneLen(s string) int { return utf8.RuneCountInString(s) }
