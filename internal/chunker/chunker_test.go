package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmpty(t *testing.T) {
	c := New(100, 10)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n  "))
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	c := New(100, 10)
	chunks := c.Split("短文本，一段就够了。")
	require.Len(t, chunks, 1)
	assert.Equal(t, "短文本，一段就够了。", chunks[0])
}

func TestSplitRespectsMaxSize(t *testing.T) {
	c := New(50, 10)
	text := strings.Repeat("abcdefghij", 30) // 300 字符，无自然边界
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, RuneLen(ch), 50)
	}
}

func TestSplitOverlapPreservesContinuity(t *testing.T) {
	c := New(50, 10)
	text := strings.Repeat("abcdefghij", 30)
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	// 相邻段之间应有重叠：后一段的开头是前一段的结尾
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := string(prev[len(prev)-10:])
		assert.True(t, strings.HasPrefix(chunks[i], tail),
			"chunk %d 应以前一段的结尾开头", i)
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	c := New(60, 5)
	// 第一个句号落在窗口后半段，应在句号处切开而不是硬切
	text := strings.Repeat("a", 40) + ". " + strings.Repeat("b", 100)
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0], "."))
}

func TestSplitCoversAllText(t *testing.T) {
	c := New(80, 10)
	text := "First sentence here. Second sentence follows! Third one asks? Fourth statement ends. Fifth keeps going and going until done."
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	// 拼接去重后应能找回原文的每个词
	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(text) {
		assert.Contains(t, joined, word)
	}
}

func TestSplitDeterministic(t *testing.T) {
	c := New(50, 10)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	first := c.Split(text)
	second := c.Split(text)
	assert.Equal(t, first, second)
}

func TestNewClampsRunawayOverlap(t *testing.T) {
	// overlap >= size/2 时窗口无法前进，构造器必须收敛
	c := New(10, 9)
	text := strings.Repeat("x", 100)
	chunks := c.Split(text)
	assert.NotEmpty(t, chunks)
	assert.Less(t, len(chunks), 100)
}
