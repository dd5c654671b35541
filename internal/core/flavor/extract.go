package flavor

import (
	"regexp"
	"sort"
	"strings"
)

// 配對回應中可能攜帶食材名稱的鍵；涵蓋兩種上游 schema 的命名變體
var nameLikeKeys = map[string]struct{}{
	"food_pair":           {},
	"foodPair":            {},
	"ingredient":          {},
	"pairing":             {},
	"pairings":            {},
	"name":                {},
	"entityName":          {},
	"commonName":          {},
	"common_name":         {},
	"aliasReadable":       {},
	"entityAliasReadable": {},
}

// 收集到的原始字串以 || 或逗號切成候選片段
var candidateDelimiter = regexp.MustCompile(`\|\||,`)

// 單一候選名稱的長度上限；超過者多半是說明文字而非食材名
const maxCandidateLength = 80

// ExtractCandidates 從形狀未知的配對回應中挖出可能的替代食材名稱
// 盡力而為的啟發式擷取：漏抓可接受，誤抓由過濾規則主動排除
// 回傳依出現順序去重後的候選清單
func ExtractCandidates(payload interface{}, sourceIngredient string) []string {
	raw := make([]string, 0)
	collectNameValues(payload, &raw)

	sourceNormalized := strings.ToLower(strings.TrimSpace(sourceIngredient))
	seen := make(map[string]struct{})
	candidates := make([]string, 0, len(raw))

	for _, value := range raw {
		for _, chunk := range candidateDelimiter.Split(value, -1) {
			candidate := strings.ToLower(strings.TrimSpace(chunk))
			if candidate == "" {
				continue
			}
			if candidate == sourceNormalized {
				continue
			}
			if strings.Contains(candidate, "http://") || strings.Contains(candidate, "https://") {
				continue
			}
			if len(candidate) > maxCandidateLength {
				continue
			}
			if _, ok := seen[candidate]; ok {
				continue
			}
			seen[candidate] = struct{}{}
			candidates = append(candidates, candidate)
		}
	}

	return candidates
}

// collectNameValues 遞迴走訪解碼後的 JSON 值（物件/陣列/字串/其他）
// 鍵名命中別名集合時收集其字串值或字串清單元素
// 解碼後的物件不保留文件順序，鍵需先排序，輸出順序才會跨次執行一致
func collectNameValues(node interface{}, out *[]string) {
	switch value := node.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			child := value[key]
			if _, ok := nameLikeKeys[key]; ok {
				switch v := child.(type) {
				case string:
					*out = append(*out, v)
				case []interface{}:
					for _, item := range v {
						if s, ok := item.(string); ok {
							*out = append(*out, s)
						}
					}
				}
			}
			collectNameValues(child, out)
		}
	case []interface{}:
		for _, item := range value {
			collectNameValues(item, out)
		}
	}
}
