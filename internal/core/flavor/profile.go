package flavor

import (
	"regexp"
	"sort"
	"strings"
)

// Profile 風味輪廓：一個食材的風味描述詞集合
// 元素一律為小寫、去除前後空白、不重複，維持排序方便比對與輸出
type Profile []string

// 上游分子資料的風味欄位別名，依序嘗試（兩種上游 schema 加兩個領域別名）
var profileFieldAliases = []string{
	"flavorProfile",
	"flavor_profile",
	"fooddb_flavor_profile",
	"fema_flavor_profile",
}

// 風味欄位若為單一字串，以分號或逗號切割
var profileDelimiter = regexp.MustCompile(`[;,]`)

// NewProfile 將任意描述詞清單正規化為風味輪廓
func NewProfile(tokens []string) Profile {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		cleaned := strings.ToLower(strings.TrimSpace(token))
		if cleaned == "" {
			continue
		}
		set[cleaned] = struct{}{}
	}
	return profileFromSet(set)
}

// Normalize 重新正規化輪廓；對已正規化的輪廓為恆等操作
func (p Profile) Normalize() Profile {
	return NewProfile(p)
}

// IsEmpty 是否為空輪廓（代表查無資料，而非錯誤）
func (p Profile) IsEmpty() bool {
	return len(p) == 0
}

// Size 輪廓大小
func (p Profile) Size() int {
	return len(p)
}

// toSet 轉為集合方便交集運算
func (p Profile) toSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p))
	for _, token := range p {
		set[token] = struct{}{}
	}
	return set
}

func profileFromSet(set map[string]struct{}) Profile {
	if len(set) == 0 {
		return Profile{}
	}
	profile := make(Profile, 0, len(set))
	for token := range set {
		profile = append(profile, token)
	}
	sort.Strings(profile)
	return profile
}

// ProfileFromRecords 從上游分子資料列組出風味輪廓
// 每一列依欄位別名順序取第一個存在的風味欄位；值可能是字串清單或分隔字串
func ProfileFromRecords(records []map[string]interface{}) Profile {
	set := make(map[string]struct{})
	for _, record := range records {
		for _, alias := range profileFieldAliases {
			value, ok := record[alias]
			if !ok {
				continue
			}
			for _, token := range tokensFromValue(value) {
				cleaned := strings.ToLower(strings.TrimSpace(token))
				if cleaned != "" {
					set[cleaned] = struct{}{}
				}
			}
			break
		}
	}
	return profileFromSet(set)
}

// ProfileFromPairings 由配對資料列推導輪廓：分子資料查無結果時的後備來源
// 每一列的實體名稱與類別各產生一個 entity:/category: 前綴描述詞
func ProfileFromPairings(rows []map[string]interface{}) Profile {
	set := make(map[string]struct{})
	for _, row := range rows {
		if name, ok := row["entityName"].(string); ok {
			if cleaned := strings.TrimSpace(name); cleaned != "" {
				set["entity:"+strings.ToLower(cleaned)] = struct{}{}
			}
		}
		if category, ok := row["category"].(string); ok {
			if cleaned := strings.TrimSpace(category); cleaned != "" {
				set["category:"+strings.ToLower(cleaned)] = struct{}{}
			}
		}
	}
	return profileFromSet(set)
}

// tokensFromValue 把風味欄位值攤平成描述詞片段
func tokensFromValue(value interface{}) []string {
	switch v := value.(type) {
	case []interface{}:
		tokens := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				tokens = append(tokens, s)
			}
		}
		return tokens
	case []string:
		return v
	case string:
		parts := profileDelimiter.Split(v, -1)
		tokens := make([]string, 0, len(parts))
		for _, part := range parts {
			if strings.TrimSpace(part) != "" {
				tokens = append(tokens, part)
			}
		}
		return tokens
	default:
		return nil
	}
}
