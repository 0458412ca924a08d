package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTextCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "你好 世界", NormalizeText("你好   \n\t 世界"))
	assert.Equal(t, "", NormalizeText("   \n  "))
}

func TestNormalizeTextStripsRolePrefixes(t *testing.T) {
	input := "客戶: 你好\n客服：您好\nCustomer: hello\nagent: hi"
	normalized := NormalizeText(input)

	assert.NotContains(t, normalized, "客戶")
	assert.NotContains(t, normalized, "客服")
	assert.NotContains(t, normalized, "Customer")
	assert.Contains(t, normalized, "你好")
	assert.Contains(t, normalized, "hello")
}

func TestNormalizeTextStripsPunctuation(t *testing.T) {
	assert.Equal(t, "你好世界", NormalizeText("你好，世界！"))
	assert.Equal(t, "hello world", NormalizeText("hello, world!"))
}

func TestNormalizeTextKeepsLettersAndDigits(t *testing.T) {
	assert.Equal(t, "訂單 12345 已出貨", NormalizeText("訂單 12345 已出貨。"))
}

func TestNormalizeTextRolePrefixMidLineUntouched(t *testing.T) {
	// Only line-leading labels are prefixes
	normalized := NormalizeText("我問過customer service了")
	assert.Contains(t, normalized, "customer")
}
