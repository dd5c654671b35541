package flavor

import (
	"math"
	"sort"
)

// SimilarityResult 兩個風味輪廓的集合重疊度量
type SimilarityResult struct {
	OverlapCount int      `json:"overlap_count"` // 交集大小
	Jaccard      float64  `json:"jaccard"`       // |A∩B| / |A∪B|，四捨五入至小數四位
	Dice         float64  `json:"dice"`          // 2|A∩B| / (|A|+|B|)，四捨五入至小數四位
	OverlapTerms []string `json:"overlap_terms"` // 排序後的共同描述詞
}

// Score 計算兩個風味輪廓的相似度；純函數，無狀態無 I/O
// 任一輪廓為空時回傳零值結果（宣告的退化情形，不是錯誤）
func Score(a, b Profile) SimilarityResult {
	// 防禦性重新正規化，呼叫端傳入未清洗的輪廓也能得到正確結果
	setA := a.Normalize().toSet()
	setB := b.Normalize().toSet()

	if len(setA) == 0 || len(setB) == 0 {
		return SimilarityResult{OverlapTerms: []string{}}
	}

	overlap := make([]string, 0)
	for token := range setA {
		if _, ok := setB[token]; ok {
			overlap = append(overlap, token)
		}
	}
	sort.Strings(overlap)

	union := len(setA) + len(setB) - len(overlap)

	return SimilarityResult{
		OverlapCount: len(overlap),
		Jaccard:      round4(float64(len(overlap)) / float64(union)),
		Dice:         round4(2 * float64(len(overlap)) / float64(len(setA)+len(setB))),
		OverlapTerms: overlap,
	}
}

// round4 四捨五入至小數四位
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
