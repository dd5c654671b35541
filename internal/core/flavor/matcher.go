package flavor

import (
	"regexp"
	"strings"
)

// blendThreshold 混合分數的接受門檻；經驗值，為相容性必須維持 0.72
const blendThreshold = 0.72

// MatchResult 名稱比對結果；比對失敗是合法結果，不是錯誤
type MatchResult struct {
	Name       string  `json:"matched_name"` // 命中的清單項目（保留原始大小寫）
	Confidence float64 `json:"confidence"`   // 信心值 [0,1]
	Matched    bool    `json:"matched"`
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeName 名稱比對前的正規化：小寫、非英數字連段折為單一空格、去除首尾空白
func NormalizeName(name string) string {
	lowered := strings.ToLower(name)
	collapsed := nonAlphanumeric.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(collapsed)
}

// matchStrategy 單一層級的比對策略，回傳結果與是否命中
type matchStrategy func(target string, candidates []string) (MatchResult, bool)

// 比對層級依序嘗試，第一個命中的層級決定結果
var matchTiers = []matchStrategy{
	matchExact,
	matchSubstring,
	matchBlended,
}

// Match 把使用者輸入的食材名稱對應到食譜食材清單中的一項
func Match(target string, candidates []string) MatchResult {
	normalized := NormalizeName(target)
	if normalized == "" || len(candidates) == 0 {
		return MatchResult{}
	}
	for _, tier := range matchTiers {
		if result, ok := tier(normalized, candidates); ok {
			return result
		}
	}
	return MatchResult{}
}

// matchExact 正規化後完全相等
func matchExact(target string, candidates []string) (MatchResult, bool) {
	for _, candidate := range candidates {
		if NormalizeName(candidate) == target {
			return MatchResult{Name: candidate, Confidence: 1.0, Matched: true}, true
		}
	}
	return MatchResult{}, false
}

// matchSubstring 雙向子字串包含，或兩邊共用至少一個完整詞（"fresh ginger" 對 "ginger root"）
// 整串包含先掃完整份清單，沒有命中才退到共用詞；兩輪各自依清單順序取第一個命中者
func matchSubstring(target string, candidates []string) (MatchResult, bool) {
	for _, candidate := range candidates {
		normalized := NormalizeName(candidate)
		if normalized == "" {
			continue
		}
		if strings.Contains(normalized, target) || strings.Contains(target, normalized) {
			return MatchResult{Name: candidate, Confidence: 0.9, Matched: true}, true
		}
	}

	targetTokens := tokenSet(target)
	for _, candidate := range candidates {
		normalized := NormalizeName(candidate)
		if normalized == "" {
			continue
		}
		for token := range tokenSet(normalized) {
			if _, ok := targetTokens[token]; ok {
				return MatchResult{Name: candidate, Confidence: 0.9, Matched: true}, true
			}
		}
	}
	return MatchResult{}, false
}

// matchBlended 詞彙重疊與字元序列相似度的混合分數
// 每個候選取兩種分數的較大者，整張清單取最高分；低於門檻視為無命中
func matchBlended(target string, candidates []string) (MatchResult, bool) {
	best := MatchResult{}
	bestScore := 0.0

	for _, candidate := range candidates {
		normalized := NormalizeName(candidate)
		if normalized == "" {
			continue
		}

		score := tokenOverlapScore(target, normalized)
		if seq := sequenceRatio(target, normalized); seq > score {
			score = seq
		}

		if score > bestScore {
			bestScore = score
			best = MatchResult{Name: candidate}
		}
	}

	if bestScore < blendThreshold {
		return MatchResult{}, false
	}

	best.Confidence = round4(bestScore)
	best.Matched = true
	return best, true
}

// tokenOverlapScore 以空白切詞後的集合重疊比例，分母取兩邊詞數較大者
func tokenOverlapScore(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)

	overlap := 0
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			overlap++
		}
	}

	denominator := len(tokensA)
	if len(tokensB) > denominator {
		denominator = len(tokensB)
	}
	if denominator < 1 {
		denominator = 1
	}
	return float64(overlap) / float64(denominator)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(s) {
		set[token] = struct{}{}
	}
	return set
}

// sequenceRatio 字元層級的序列相似度：最長連續共同區塊遞迴累加後的比值
// 等同經典的 2*M / (len(a)+len(b))，範圍 [0,1]
func sequenceRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	matched := matchingBlockTotal(a, b)
	return 2 * float64(matched) / float64(len(a)+len(b))
}

// matchingBlockTotal 找出最長共同子字串後，對其左右兩側遞迴累計匹配字元數
func matchingBlockTotal(a, b string) int {
	ai, bi, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlockTotal(a[:ai], b[:bi])
	total += matchingBlockTotal(a[ai+size:], b[bi+size:])
	return total
}

// longestCommonBlock 回傳最長共同子字串在兩字串中的起點與長度
func longestCommonBlock(a, b string) (int, int, int) {
	bestA, bestB, bestSize := 0, 0, 0
	// lengths[j] 為以 a[i-1]、b[j-1] 結尾的共同子字串長度
	lengths := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		prevDiagonal := 0
		for j := 1; j <= len(b); j++ {
			current := lengths[j]
			if a[i-1] == b[j-1] {
				lengths[j] = prevDiagonal + 1
				if lengths[j] > bestSize {
					bestSize = lengths[j]
					bestA = i - bestSize
					bestB = j - bestSize
				}
			} else {
				lengths[j] = 0
			}
			prevDiagonal = current
		}
	}
	return bestA, bestB, bestSize
}
