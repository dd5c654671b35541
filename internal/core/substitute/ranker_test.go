package substitute

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flavor-remix/internal/core/flavor"
	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/infrastructure/recipedb"
	"flavor-remix/internal/pkg/common"
)

func TestMain(m *testing.M) {
	common.Logger = zap.NewNop()
	os.Exit(m.Run())
}

// stubProfileSource 以固定表回應輪廓查詢
type stubProfileSource struct {
	profiles map[string][]string
	errs     map[string]error
	calls    []string
}

func (s *stubProfileSource) FlavorProfile(_ context.Context, ingredient string) (flavor.Profile, error) {
	s.calls = append(s.calls, ingredient)
	if err, ok := s.errs[ingredient]; ok {
		return nil, err
	}
	return flavor.NewProfile(s.profiles[ingredient]), nil
}

type stubPairingSource struct {
	payload map[string]interface{}
	err     error
}

func (s *stubPairingSource) PairingPayload(_ context.Context, _ string) (map[string]interface{}, error) {
	return s.payload, s.err
}

type stubRecipeSource struct {
	bundle *recipedb.RecipeBundle
	err    error
}

func (s *stubRecipeSource) RecipeWithIngredients(_ context.Context, _, _ string) (*recipedb.RecipeBundle, error) {
	return s.bundle, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Substitute: config.SubstituteConfig{
			DefaultLimit: 10,
			MaxLimit:     50,
			MoleculeSize: 50,
		},
		Cache: config.CacheConfig{
			Enabled:         true,
			Backend:         "memory",
			MaxSize:         100,
			TTL:             time.Minute,
			CleanupInterval: time.Minute,
		},
	}
}

func TestRankOrdering(t *testing.T) {
	target := flavor.NewProfile([]string{"sweet", "fruity", "citrus", "floral"})
	profiles := &stubProfileSource{profiles: map[string][]string{
		// jaccard 1/7，交集 1
		"candidate-low": {"sweet", "woody", "earthy", "musty"},
		// jaccard 3/5，交集 3
		"candidate-high": {"sweet", "fruity", "citrus", "mint"},
		// jaccard 2/6，交集 2
		"candidate-mid": {"sweet", "fruity", "smoky", "nutty"},
	}}
	svc := NewService(testConfig(), profiles, nil, nil)

	ranked := svc.Rank(context.Background(), target,
		[]string{"candidate-low", "candidate-high", "candidate-mid"}, "", 0)

	require.Len(t, ranked, 3)
	assert.Equal(t, "candidate-high", ranked[0].Ingredient)
	assert.Equal(t, "candidate-mid", ranked[1].Ingredient)
	assert.Equal(t, "candidate-low", ranked[2].Ingredient)
	assert.Equal(t, 0.6, ranked[0].Similarity.Jaccard)
}

func TestRankTieBrokenByOverlap(t *testing.T) {
	target := flavor.NewProfile([]string{"a", "b", "c", "d"})
	profiles := &stubProfileSource{profiles: map[string][]string{
		// 兩者 jaccard 皆為 0.2，交集大小不同時大的在前
		"one-overlap": {"a", "x"},
		"two-overlap": {"a", "b", "x", "y", "z", "w", "v", "u"},
	}}
	svc := NewService(testConfig(), profiles, nil, nil)

	rankedA := svc.Rank(context.Background(), target, []string{"one-overlap", "two-overlap"}, "", 0)

	require.Len(t, rankedA, 2)
	assert.Equal(t, rankedA[0].Similarity.Jaccard, rankedA[1].Similarity.Jaccard)
	assert.Equal(t, "two-overlap", rankedA[0].Ingredient)
}

func TestRankStableOnEqualScores(t *testing.T) {
	target := flavor.NewProfile([]string{"a", "b"})
	profiles := &stubProfileSource{profiles: map[string][]string{
		"first":  {"a", "x"},
		"second": {"a", "y"},
	}}
	svc := NewService(testConfig(), profiles, nil, nil)

	ranked := svc.Rank(context.Background(), target, []string{"first", "second"}, "", 0)

	require.Len(t, ranked, 2)
	assert.Equal(t, "first", ranked[0].Ingredient)
	assert.Equal(t, "second", ranked[1].Ingredient)
}

func TestRankSkipsSourceIngredient(t *testing.T) {
	target := flavor.NewProfile([]string{"a"})
	profiles := &stubProfileSource{profiles: map[string][]string{
		"other": {"a"},
	}}
	svc := NewService(testConfig(), profiles, nil, nil)

	ranked := svc.Rank(context.Background(), target, []string{" Ginger ", "other"}, "ginger", 0)

	require.Len(t, ranked, 1)
	assert.Equal(t, "other", ranked[0].Ingredient)
	// 被略過的食材不應觸發輪廓查詢
	assert.Equal(t, []string{"other"}, profiles.calls)
}

func TestRankDropsFailedAndEmptyProfiles(t *testing.T) {
	target := flavor.NewProfile([]string{"a"})
	profiles := &stubProfileSource{
		profiles: map[string][]string{
			"good":  {"a", "b"},
			"empty": {},
		},
		errs: map[string]error{
			"broken": errors.New("upstream exploded"),
		},
	}
	svc := NewService(testConfig(), profiles, nil, nil)

	ranked := svc.Rank(context.Background(), target, []string{"broken", "empty", "good"}, "", 0)

	require.Len(t, ranked, 1)
	assert.Equal(t, "good", ranked[0].Ingredient)
}

func TestRankAppliesLimit(t *testing.T) {
	target := flavor.NewProfile([]string{"a"})
	profiles := &stubProfileSource{profiles: map[string][]string{
		"one": {"a"}, "two": {"a"}, "three": {"a"},
	}}
	svc := NewService(testConfig(), profiles, nil, nil)

	ranked := svc.Rank(context.Background(), target, []string{"one", "two", "three"}, "", 2)

	assert.Len(t, ranked, 2)
}

func TestRankDefaultLimitWhenOmitted(t *testing.T) {
	target := flavor.NewProfile([]string{"a"})
	profiles := &stubProfileSource{profiles: map[string][]string{}}
	pool := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("candidate-%02d", i)
		profiles.profiles[name] = []string{"a"}
		pool = append(pool, name)
	}
	svc := NewService(testConfig(), profiles, nil, nil)

	// limit 省略時套用預設上限，而非回傳整個候選池
	ranked := svc.Rank(context.Background(), target, pool, "", 0)

	assert.Len(t, ranked, 10)
}

func TestBuildRationale(t *testing.T) {
	withOverlap := flavor.SimilarityResult{
		OverlapCount: 5,
		Jaccard:      0.4167,
		OverlapTerms: []string{"citrus", "floral", "fruity", "green", "sweet"},
	}
	assert.Equal(t,
		"5 shared flavor terms (jaccard=0.4167): citrus, floral, fruity",
		buildRationale(withOverlap))

	noOverlap := flavor.SimilarityResult{OverlapTerms: []string{}}
	assert.Equal(t,
		"low confidence: no shared flavor terms (jaccard=0.0000)",
		buildRationale(noOverlap))
}

func TestSuggestForRecipeHappyPath(t *testing.T) {
	bundle := &recipedb.RecipeBundle{
		Recipe: map[string]interface{}{"Recipe_title": "Thai Green Curry"},
		Ingredients: []map[string]interface{}{
			{"ingredient": "Fresh Ginger"},
			{"ingredient": "Coconut Milk"},
			{"ingredient": "Basil"},
		},
		Lookup: &recipedb.LookupInfo{Type: "id", Value: "2610"},
	}
	profiles := &stubProfileSource{profiles: map[string][]string{
		"Fresh Ginger": {"spicy", "citrus", "woody"},
		"galangal":     {"spicy", "citrus", "pine"},
		"turmeric":     {"earthy", "bitter"},
	}}
	pairings := &stubPairingSource{payload: map[string]interface{}{
		"pairings": []interface{}{
			map[string]interface{}{"food_pair": "Galangal||Turmeric"},
		},
	}}
	svc := NewService(testConfig(), profiles, pairings, &stubRecipeSource{bundle: bundle})

	result, err := svc.SuggestForRecipe(context.Background(), &RecipeRequest{
		RecipeID:   "2610",
		Ingredient: "ginger",
	})

	require.NoError(t, err)
	assert.Equal(t, "Fresh Ginger", result.Match.Name)
	assert.Equal(t, 0.9, result.Match.Confidence)
	assert.Equal(t, []string{"Fresh Ginger", "Coconut Milk", "Basil"}, result.Ingredients)
	assert.Equal(t, 2, result.PoolSize)
	require.Len(t, result.Replacements, 2)
	assert.Equal(t, "galangal", result.Replacements[0].Ingredient)
	assert.Equal(t, "turmeric", result.Replacements[1].Ingredient)
	assert.Equal(t, 0.5, result.Replacements[0].Similarity.Jaccard)
}

func TestSuggestForRecipeExplicitCandidates(t *testing.T) {
	bundle := &recipedb.RecipeBundle{
		Ingredients: []map[string]interface{}{{"ingredient": "ginger"}},
	}
	profiles := &stubProfileSource{profiles: map[string][]string{
		"ginger":   {"spicy"},
		"galangal": {"spicy"},
	}}
	// 呼叫端自帶候選時不應查詢配對資料
	pairings := &stubPairingSource{err: errors.New("should not be called")}
	svc := NewService(testConfig(), profiles, pairings, &stubRecipeSource{bundle: bundle})

	result, err := svc.SuggestForRecipe(context.Background(), &RecipeRequest{
		Title:      "Stir Fry",
		Ingredient: "ginger",
		Candidates: []string{"Galangal", "ginger"},
	})

	require.NoError(t, err)
	require.Len(t, result.Replacements, 1)
	assert.Equal(t, "galangal", result.Replacements[0].Ingredient)
}

func TestSuggestForRecipeValidation(t *testing.T) {
	svc := NewService(testConfig(), nil, nil, nil)

	_, err := svc.SuggestForRecipe(context.Background(), &RecipeRequest{Ingredient: "ginger"})
	var custom *common.CustomError
	require.ErrorAs(t, err, &custom)
	assert.Equal(t, 400, custom.Status)

	_, err = svc.SuggestForRecipe(context.Background(), &RecipeRequest{RecipeID: "2610"})
	require.ErrorAs(t, err, &custom)
	assert.Equal(t, 400, custom.Status)
}

func TestSuggestForRecipeEmptyIngredientList(t *testing.T) {
	bundle := &recipedb.RecipeBundle{Recipe: map[string]interface{}{}}
	svc := NewService(testConfig(), nil, nil, &stubRecipeSource{bundle: bundle})

	_, err := svc.SuggestForRecipe(context.Background(), &RecipeRequest{
		RecipeID:   "2610",
		Ingredient: "ginger",
	})

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, ReasonRecipeEmpty, notFound.Reason)
}

func TestSuggestForRecipeIngredientNotInRecipe(t *testing.T) {
	bundle := &recipedb.RecipeBundle{
		Ingredients: []map[string]interface{}{
			{"ingredient": "Coconut Milk"},
			{"ingredient": "Basil"},
		},
	}
	svc := NewService(testConfig(), nil, nil, &stubRecipeSource{bundle: bundle})

	_, err := svc.SuggestForRecipe(context.Background(), &RecipeRequest{
		RecipeID:   "2610",
		Ingredient: "saffron",
	})

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, ReasonIngredientNotFound, notFound.Reason)
	// 診斷資訊要附上完整食材清單
	assert.Equal(t, []string{"Coconut Milk", "Basil"}, notFound.Ingredients)
}

func TestSuggestForRecipeNoFlavorProfile(t *testing.T) {
	bundle := &recipedb.RecipeBundle{
		Ingredients: []map[string]interface{}{{"ingredient": "ginger"}},
	}
	profiles := &stubProfileSource{profiles: map[string][]string{}}
	svc := NewService(testConfig(), profiles, nil, &stubRecipeSource{bundle: bundle})

	_, err := svc.SuggestForRecipe(context.Background(), &RecipeRequest{
		RecipeID:   "2610",
		Ingredient: "ginger",
	})

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, ReasonNoFlavorProfile, notFound.Reason)
}

func TestSuggestForRecipeNoCandidates(t *testing.T) {
	bundle := &recipedb.RecipeBundle{
		Ingredients: []map[string]interface{}{{"ingredient": "ginger"}},
	}
	profiles := &stubProfileSource{profiles: map[string][]string{
		"ginger": {"spicy"},
	}}
	// 配對查無資料回報 404，應轉為 no_candidates 而非錯誤
	pairings := &stubPairingSource{err: common.ErrNotFound}
	svc := NewService(testConfig(), profiles, pairings, &stubRecipeSource{bundle: bundle})

	_, err := svc.SuggestForRecipe(context.Background(), &RecipeRequest{
		RecipeID:   "2610",
		Ingredient: "ginger",
	})

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, ReasonNoCandidates, notFound.Reason)
}

func TestSuggestForRecipePropagatesRecipeError(t *testing.T) {
	upstreamErr := common.NewUpstreamError("recipedb", "/search-recipe/2610", "boom", 502)
	svc := NewService(testConfig(), nil, nil, &stubRecipeSource{err: upstreamErr})

	_, err := svc.SuggestForRecipe(context.Background(), &RecipeRequest{
		RecipeID:   "2610",
		Ingredient: "ginger",
	})

	upstream, ok := common.AsUpstreamError(err)
	require.True(t, ok)
	assert.Equal(t, 502, upstream.StatusCode)
}

func TestClampLimit(t *testing.T) {
	svc := NewService(testConfig(), nil, nil, nil)

	assert.Equal(t, 10, svc.clampLimit(0))
	assert.Equal(t, 10, svc.clampLimit(-3))
	assert.Equal(t, 7, svc.clampLimit(7))
	assert.Equal(t, 50, svc.clampLimit(999))
}
