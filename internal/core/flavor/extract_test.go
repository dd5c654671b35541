package flavor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCandidates(t *testing.T) {
	payload := map[string]interface{}{
		"payload": map[string]interface{}{
			"data": []interface{}{
				map[string]interface{}{
					"entityName": "Ginger",
					"food_pair":  "Ginger, Galangal",
				},
				map[string]interface{}{
					"name": "https://example.com/entity/42",
				},
			},
		},
	}

	candidates := ExtractCandidates(payload, "ginger")
	assert.Equal(t, []string{"galangal"}, candidates)
}

func TestExtractCandidatesDoublePipeDelimiter(t *testing.T) {
	payload := map[string]interface{}{
		"pairings": []interface{}{
			map[string]interface{}{"food_pair": "Lemongrass||Kaffir Lime||Turmeric"},
		},
	}

	candidates := ExtractCandidates(payload, "ginger")
	assert.Equal(t, []string{"lemongrass", "kaffir lime", "turmeric"}, candidates)
}

func TestExtractCandidatesDedupePreservesOrder(t *testing.T) {
	payload := []interface{}{
		map[string]interface{}{"ingredient": "Galangal"},
		map[string]interface{}{"ingredient": "Turmeric"},
		map[string]interface{}{"ingredient": "galangal"},
	}

	candidates := ExtractCandidates(payload, "")
	assert.Equal(t, []string{"galangal", "turmeric"}, candidates)
}

func TestExtractCandidatesStableOrderWithinObject(t *testing.T) {
	// 同一物件帶多個命名鍵時輸出順序不可隨執行改變
	payload := map[string]interface{}{
		"name":       "Apple",
		"ingredient": "Banana",
	}

	first := ExtractCandidates(payload, "")
	assert.Equal(t, []string{"banana", "apple"}, first)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, ExtractCandidates(payload, ""))
	}
}

func TestExtractCandidatesFiltersLongValues(t *testing.T) {
	long := make([]byte, 120)
	for i := range long {
		long[i] = 'x'
	}

	payload := map[string]interface{}{
		"pairing": []interface{}{string(long), "Shallot"},
	}

	candidates := ExtractCandidates(payload, "")
	assert.Equal(t, []string{"shallot"}, candidates)
}

func TestExtractCandidatesIgnoresUnknownKeys(t *testing.T) {
	payload := map[string]interface{}{
		"description": "aromatic rhizome used in asian cuisine",
		"id":          42.0,
	}

	candidates := ExtractCandidates(payload, "")
	assert.Empty(t, candidates)
}

func TestExtractCandidatesNonContainerPayload(t *testing.T) {
	assert.Empty(t, ExtractCandidates("just a string", ""))
	assert.Empty(t, ExtractCandidates(nil, ""))
}
