package substitute

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"flavor-remix/internal/core/flavor"
	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/infrastructure/recipedb"
	"flavor-remix/internal/pkg/common"
)

// ProfileSource 風味輪廓查詢來源
type ProfileSource interface {
	FlavorProfile(ctx context.Context, ingredient string) (flavor.Profile, error)
}

// PairingSource 配對資料查詢來源，用於推導候選池
type PairingSource interface {
	PairingPayload(ctx context.Context, ingredient string) (map[string]interface{}, error)
}

// RecipeSource 食譜查詢來源
type RecipeSource interface {
	RecipeWithIngredients(ctx context.Context, recipeID, title string) (*recipedb.RecipeBundle, error)
}

// RankedCandidate 排名後的替代候選
type RankedCandidate struct {
	Ingredient  string                  `json:"ingredient"`
	Similarity  flavor.SimilarityResult `json:"similarity"`
	ProfileSize int                     `json:"profile_size"`
	Rationale   string                  `json:"rationale"`
}

// NotFoundError 查無資料的明確結果，附帶診斷資訊
type NotFoundError struct {
	Reason      string   `json:"reason"`
	Message     string   `json:"message"`
	Ingredients []string `json:"ingredients,omitempty"` // 食譜的完整食材清單，供呼叫端診斷
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// 查無資料的原因代碼
const (
	ReasonRecipeEmpty        = "empty_ingredient_list"
	ReasonIngredientNotFound = "ingredient_not_in_recipe"
	ReasonNoFlavorProfile    = "no_flavor_profile"
	ReasonNoCandidates       = "no_candidates"
)

// Service 替代食材排名服務
type Service struct {
	config   *config.Config
	profiles ProfileSource
	pairings PairingSource
	recipes  RecipeSource
}

// NewService 創建替代食材排名服務
func NewService(cfg *config.Config, profiles ProfileSource, pairings PairingSource, recipes RecipeSource) *Service {
	return &Service{
		config:   cfg,
		profiles: profiles,
		pairings: pairings,
		recipes:  recipes,
	}
}

// Rank 對候選池逐一查詢輪廓、評分並排序
// 輪廓查詢失敗或為空的候選直接剔除，不回報部分失敗；允許降級結果
// limit 省略或超限時套用設定的預設值與上限
func (s *Service) Rank(ctx context.Context, target flavor.Profile, pool []string, skip string, limit int) []RankedCandidate {
	limit = s.clampLimit(limit)
	skipNormalized := strings.ToLower(strings.TrimSpace(skip))
	ranked := make([]RankedCandidate, 0, len(pool))

	for _, candidate := range pool {
		if skipNormalized != "" && strings.ToLower(strings.TrimSpace(candidate)) == skipNormalized {
			continue
		}

		profile, err := s.profiles.FlavorProfile(ctx, candidate)
		if err != nil {
			common.LogDebug("候選輪廓查詢失敗，剔除候選",
				zap.String("candidate", candidate),
				zap.Error(err),
			)
			continue
		}
		if profile.IsEmpty() {
			continue
		}

		similarity := flavor.Score(target, profile)
		ranked = append(ranked, RankedCandidate{
			Ingredient:  candidate,
			Similarity:  similarity,
			ProfileSize: profile.Size(),
			Rationale:   buildRationale(similarity),
		})
	}

	// 主鍵 jaccard 遞減，次鍵交集大小遞減；穩定排序讓同分者維持出現順序
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Similarity.Jaccard != ranked[j].Similarity.Jaccard {
			return ranked[i].Similarity.Jaccard > ranked[j].Similarity.Jaccard
		}
		return ranked[i].Similarity.OverlapCount > ranked[j].Similarity.OverlapCount
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// buildRationale 產生人類可讀的評分說明
func buildRationale(similarity flavor.SimilarityResult) string {
	if similarity.OverlapCount == 0 {
		return fmt.Sprintf("low confidence: no shared flavor terms (jaccard=%.4f)", similarity.Jaccard)
	}

	terms := similarity.OverlapTerms
	if len(terms) > 3 {
		terms = terms[:3]
	}
	return fmt.Sprintf("%d shared flavor terms (jaccard=%.4f): %s",
		similarity.OverlapCount, similarity.Jaccard, strings.Join(terms, ", "))
}

// RecipeRequest 食譜替代流程的輸入
type RecipeRequest struct {
	RecipeID   string   `json:"recipe_id"`
	Title      string   `json:"title"`
	Ingredient string   `json:"ingredient"`
	Candidates []string `json:"candidates"` // 呼叫端自帶候選池；省略時由配對資料推導
	Limit      int      `json:"limit"`
}

// RecipeResult 食譜替代流程的輸出
type RecipeResult struct {
	Lookup        *recipedb.LookupInfo `json:"lookup,omitempty"`
	Ingredients   []string             `json:"ingredients"`
	Match         flavor.MatchResult   `json:"match"`
	TargetProfile flavor.Profile       `json:"target_profile"`
	PoolSize      int                  `json:"pool_size"`
	Replacements  []RankedCandidate    `json:"replacements"`
}

// SuggestForRecipe 食譜替代的頂層編排
// 解析食譜、定位目標食材、取得輪廓、決定候選池，最後評分排序
func (s *Service) SuggestForRecipe(ctx context.Context, req *RecipeRequest) (*RecipeResult, error) {
	if req.RecipeID == "" && req.Title == "" {
		return nil, common.NewError(common.ErrCodeInvalidRequest,
			"provide at least one of: recipe_id or title", 400, nil)
	}
	if strings.TrimSpace(req.Ingredient) == "" {
		return nil, common.NewError(common.ErrCodeInvalidRequest,
			"ingredient is required", 400, nil)
	}

	bundle, err := s.recipes.RecipeWithIngredients(ctx, req.RecipeID, req.Title)
	if err != nil {
		return nil, err
	}

	ingredients := recipedb.IngredientNames(bundle)
	if len(ingredients) == 0 {
		return nil, &NotFoundError{
			Reason:  ReasonRecipeEmpty,
			Message: "recipe has no usable ingredient names",
		}
	}

	match := flavor.Match(req.Ingredient, ingredients)
	if !match.Matched {
		return nil, &NotFoundError{
			Reason:      ReasonIngredientNotFound,
			Message:     fmt.Sprintf("ingredient %q not found in recipe", req.Ingredient),
			Ingredients: ingredients,
		}
	}

	targetProfile, err := s.profiles.FlavorProfile(ctx, match.Name)
	if err != nil {
		return nil, err
	}
	if targetProfile.IsEmpty() {
		return nil, &NotFoundError{
			Reason:  ReasonNoFlavorProfile,
			Message: fmt.Sprintf("no flavor profile available for %q", match.Name),
		}
	}

	pool, err := s.candidatePool(ctx, req.Candidates, match.Name)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, &NotFoundError{
			Reason:  ReasonNoCandidates,
			Message: fmt.Sprintf("no substitution candidates available for %q", match.Name),
		}
	}

	replacements := s.Rank(ctx, targetProfile, pool, match.Name, req.Limit)

	return &RecipeResult{
		Lookup:        bundle.Lookup,
		Ingredients:   ingredients,
		Match:         match,
		TargetProfile: targetProfile,
		PoolSize:      len(pool),
		Replacements:  replacements,
	}, nil
}

// candidatePool 決定候選池：呼叫端自帶候選優先，否則由配對資料擷取
func (s *Service) candidatePool(ctx context.Context, explicit []string, ingredient string) ([]string, error) {
	if len(explicit) > 0 {
		return flavor.ExtractCandidates(map[string]interface{}{
			"pairings": toInterfaceSlice(explicit),
		}, ingredient), nil
	}

	payload, err := s.pairings.PairingPayload(ctx, ingredient)
	if err != nil {
		if common.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return flavor.ExtractCandidates(payload, ingredient), nil
}

// clampLimit 套用預設與上限
func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.config.Substitute.DefaultLimit
	}
	if limit > s.config.Substitute.MaxLimit {
		return s.config.Substitute.MaxLimit
	}
	return limit
}

func toInterfaceSlice(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
