package flavor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "fresh ginger root", NormalizeName("  Fresh-Ginger  (root) "))
	assert.Equal(t, "chili pepper", NormalizeName("Chili_Pepper!"))
	assert.Equal(t, "", NormalizeName("!!!"))
}

func TestMatchExact(t *testing.T) {
	result := Match("Ginger", []string{"ginger", "garlic"})

	assert.True(t, result.Matched)
	assert.Equal(t, "ginger", result.Name)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestMatchExactAfterNormalization(t *testing.T) {
	result := Match("fresh-ginger", []string{"Fresh Ginger", "garlic"})

	assert.True(t, result.Matched)
	assert.Equal(t, "Fresh Ginger", result.Name)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestMatchSubstring(t *testing.T) {
	result := Match("ginger", []string{"fresh ginger root", "garlic"})

	assert.True(t, result.Matched)
	assert.Equal(t, "fresh ginger root", result.Name)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestMatchSubstringReversed(t *testing.T) {
	// 輸入比清單項目長的方向也要命中
	result := Match("fresh ginger root", []string{"ginger", "garlic"})

	assert.True(t, result.Matched)
	assert.Equal(t, "ginger", result.Name)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestMatchExactBeatsSubstring(t *testing.T) {
	// 完全相等的層級優先於子字串，即使子字串項目排在前面
	result := Match("ginger", []string{"fresh ginger", "ginger"})

	assert.Equal(t, "ginger", result.Name)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestMatchSubstringSharedToken(t *testing.T) {
	// 沒有整串包含關係，但共用完整詞 "ginger" 時仍屬子字串層級
	result := Match("fresh ginger", []string{"ginger root", "garlic"})

	assert.True(t, result.Matched)
	assert.Equal(t, "ginger root", result.Name)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestMatchBlendedSequenceRatio(t *testing.T) {
	// 拼字錯誤：沒有共用詞也沒有包含關係，靠序列相似度過 0.72 門檻
	result := Match("gingr", []string{"ginger", "potato"})

	assert.True(t, result.Matched)
	assert.Equal(t, "ginger", result.Name)
	assert.InDelta(t, 10.0/11.0, result.Confidence, 1e-4)
}

func TestMatchBlendedRejectsBelowThreshold(t *testing.T) {
	result := Match("xyz123", []string{"ginger", "garlic", "onion"})

	assert.False(t, result.Matched)
	assert.Equal(t, "", result.Name)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestMatchEmptyInputs(t *testing.T) {
	assert.False(t, Match("", []string{"ginger"}).Matched)
	assert.False(t, Match("ginger", nil).Matched)
	assert.False(t, Match("!!!", []string{"ginger"}).Matched)
}

func TestMatchSubstringContainmentBeatsSharedToken(t *testing.T) {
	// 整串包含優先於共用詞，即使共用詞的候選排在前面
	result := Match("ground ginger", []string{"ground beef", "ginger"})

	assert.True(t, result.Matched)
	assert.Equal(t, "ginger", result.Name)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestMatchSubstringKeepsFirstOnSharedToken(t *testing.T) {
	// 兩個候選都共用 "pepper"，依清單順序取第一個
	result := Match("roasted red pepper", []string{"pepper flakes", "red pepper sauce"})

	assert.True(t, result.Matched)
	assert.Equal(t, "pepper flakes", result.Name)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestMatchBlendedKeepsFirstOnTie(t *testing.T) {
	// 兩個候選的序列相似度同為 0.8，同分時保留先出現的候選
	result := Match("flour", []string{"fluor", "fluro"})

	assert.True(t, result.Matched)
	assert.Equal(t, "fluor", result.Name)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
}

func TestTokenOverlapScore(t *testing.T) {
	assert.Equal(t, 1.0, tokenOverlapScore("sea salt", "salt sea"))
	assert.Equal(t, 0.5, tokenOverlapScore("sea salt", "sea water"))
	assert.Equal(t, 0.0, tokenOverlapScore("sugar", "salt"))
}

func TestSequenceRatio(t *testing.T) {
	assert.Equal(t, 1.0, sequenceRatio("ginger", "ginger"))
	assert.Equal(t, 1.0, sequenceRatio("", ""))
	assert.Equal(t, 0.0, sequenceRatio("ginger", ""))

	// "ginger" vs "gingery"：M=6 → 2*6/13
	ratio := sequenceRatio("ginger", "gingery")
	assert.InDelta(t, 12.0/13.0, ratio, 1e-9)

	// 不連續的共同區塊也要累計："abcXdef" vs "abcYdef"：M=6 → 12/14
	ratio = sequenceRatio("abcxdef", "abcydef")
	assert.InDelta(t, 12.0/14.0, ratio, 1e-9)
}

func TestLongestCommonBlock(t *testing.T) {
	ai, bi, size := longestCommonBlock("xxgingeryy", "zzgingerww")
	assert.Equal(t, 2, ai)
	assert.Equal(t, 2, bi)
	assert.Equal(t, 6, size)

	_, _, size = longestCommonBlock("abc", "xyz")
	assert.Equal(t, 0, size)
}
