package recipedb

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"
)

const upstreamName = "recipedb"

// 429 重試的延遲下限與預設值
const (
	minRetryDelay     = 500 * time.Millisecond
	defaultRetryDelay = time.Second
)

// Client RecipeDB 客戶端：食譜標題搜尋與明細查詢
type Client struct {
	client *resty.Client
}

// RecipeBundle 正規化後的食譜資料：食譜本體加食材列
type RecipeBundle struct {
	Recipe      map[string]interface{}   `json:"recipe"`
	Ingredients []map[string]interface{} `json:"ingredients"`
	Lookup      *LookupInfo              `json:"lookup,omitempty"`
}

// LookupInfo 標題解析紀錄
type LookupInfo struct {
	Type             string `json:"type"`
	Value            string `json:"value"`
	ResolvedRecipeID string `json:"resolved_recipe_id"`
}

// NewClient 創建 RecipeDB 客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.RecipeDB.BaseURL).
		SetTimeout(cfg.RecipeDB.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.RecipeDB.AuthToken)).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{client: client}
}

// get 發送請求並解析 JSON 回應
// 僅對 429 做一次重試，延遲依 Retry-After 標頭（下限 0.5 秒，無法解析時 1 秒）
func (c *Client) get(ctx context.Context, path string, params map[string]string) (map[string]interface{}, error) {
	var resp *resty.Response
	var err error

	for attempt := 0; attempt < 2; attempt++ {
		start := time.Now()
		resp, err = c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)
		common.LogUpstreamCall(upstreamName, path, time.Since(start), err)

		if err != nil {
			return nil, common.NewUpstreamError(upstreamName, path,
				fmt.Sprintf("RecipeDB request failed for %s: %v", path, err), http.StatusBadGateway)
		}

		if resp.StatusCode() != http.StatusTooManyRequests {
			break
		}

		if attempt == 0 {
			delay := retryDelay(resp.Header().Get("Retry-After"))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, common.NewUpstreamError(upstreamName, path,
					fmt.Sprintf("RecipeDB request cancelled for %s: %v", path, ctx.Err()), http.StatusBadGateway)
			}
		}
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		status := resp.StatusCode()
		apiError := extractAPIError(resp.Body())
		if common.LooksLikeAuthError(apiError) {
			status = http.StatusUnauthorized
		}
		message := fmt.Sprintf("RecipeDB request failed for %s: HTTP %d.", path, status)
		if apiError != "" {
			message += " " + apiError
		}
		return nil, common.NewUpstreamError(upstreamName, path, message, status)
	}

	var payload map[string]interface{}
	if err := common.ParseJSONBytes(resp.Body(), &payload); err != nil {
		return nil, common.NewUpstreamError(upstreamName, path,
			fmt.Sprintf("RecipeDB returned non-JSON response for %s", path), http.StatusBadGateway)
	}

	return payload, nil
}

// retryDelay 解析 Retry-After 標頭為等待時間
func retryDelay(retryAfter string) time.Duration {
	if retryAfter == "" {
		return defaultRetryDelay
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(retryAfter), 64)
	if err != nil {
		return defaultRetryDelay
	}
	delay := time.Duration(seconds * float64(time.Second))
	if delay < minRetryDelay {
		return minRetryDelay
	}
	return delay
}

// extractAPIError 從上游錯誤回應取出錯誤文字
func extractAPIError(body []byte) string {
	var payload map[string]interface{}
	if err := common.ParseJSONBytes(body, &payload); err != nil {
		return ""
	}
	return common.FirstStringValue(payload, "error", "message", "detail")
}

// SearchByTitle 以標題搜尋食譜摘要列
func (c *Client) SearchByTitle(ctx context.Context, title string, page, limit int) (map[string]interface{}, error) {
	return c.get(ctx, "/recipe2-api/recipebyingredient/by-ingredients-categories-title", map[string]string{
		"title": title,
		"page":  strconv.Itoa(page),
		"limit": strconv.Itoa(limit),
	})
}

// RecipeByID 以識別碼查詢食譜明細
func (c *Client) RecipeByID(ctx context.Context, recipeID string) (map[string]interface{}, error) {
	return c.get(ctx, "/recipe2-api/search-recipe/"+recipeID, nil)
}

// RecipeWithIngredients 取得完整食譜：識別碼優先，否則以標題搜尋的第一筆為準
func (c *Client) RecipeWithIngredients(ctx context.Context, recipeID, title string) (*RecipeBundle, error) {
	if recipeID == "" && title == "" {
		return nil, common.NewError(common.ErrCodeInvalidRequest,
			"provide at least one of: recipe_id or title", http.StatusBadRequest, nil)
	}

	if recipeID != "" {
		detail, err := c.RecipeByID(ctx, recipeID)
		if err != nil {
			return nil, err
		}
		bundle := normalizeRecipePayload(detail)
		if len(bundle.Recipe) == 0 {
			return nil, common.NewError(common.ErrCodeNotFound,
				fmt.Sprintf("recipe %s not found or missing details", recipeID), http.StatusNotFound, nil)
		}
		return bundle, nil
	}

	searchPayload, err := c.SearchByTitle(ctx, title, 1, 1)
	if err != nil {
		return nil, err
	}

	matches := extractRecipeList(searchPayload)
	if len(matches) == 0 {
		return nil, common.NewError(common.ErrCodeNotFound,
			fmt.Sprintf("no recipes found for title %q", title), http.StatusNotFound, nil)
	}

	resolvedID := common.FirstStringValue(matches[0], "Recipe_id", "recipe_id", "id")
	if resolvedID == "" {
		resolvedID = numericID(matches[0], "Recipe_id", "recipe_id", "id")
	}
	if resolvedID == "" {
		return nil, common.NewUpstreamError(upstreamName, "",
			fmt.Sprintf("could not resolve recipe id for title %q", title), http.StatusBadGateway)
	}

	detail, err := c.RecipeByID(ctx, resolvedID)
	if err != nil {
		return nil, err
	}

	bundle := normalizeRecipePayload(detail)
	if len(bundle.Recipe) == 0 {
		return nil, common.NewError(common.ErrCodeNotFound,
			fmt.Sprintf("recipe %s not found or missing details", resolvedID), http.StatusNotFound, nil)
	}
	bundle.Lookup = &LookupInfo{
		Type:             "title",
		Value:            title,
		ResolvedRecipeID: resolvedID,
	}
	return bundle, nil
}

// numericID 識別碼欄位可能是數字型別，轉成字串
func numericID(record map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := record[key].(type) {
		case float64:
			return strconv.FormatInt(int64(v), 10)
		case int:
			return strconv.Itoa(v)
		default:
			if n, ok := v.(interface{ String() string }); ok {
				// json.Number 走此分支
				return n.String()
			}
		}
	}
	return ""
}

// extractRecipeList 從搜尋回應取出食譜摘要列
func extractRecipeList(payload map[string]interface{}) []map[string]interface{} {
	candidates := []interface{}{
		payload["recipes"],
		payload["data"],
	}
	if nested, ok := payload["payload"].(map[string]interface{}); ok {
		candidates = append(candidates, nested["data"], nested["recipes"])
	}

	for _, value := range candidates {
		if records := common.RecordList(value); records != nil {
			return records
		}
	}
	return nil
}

// normalizeRecipePayload 把兩種已知的明細外殼整理成一致的 RecipeBundle
func normalizeRecipePayload(payload map[string]interface{}) *RecipeBundle {
	if recipe, ok := payload["recipe"].(map[string]interface{}); ok {
		if _, ok := payload["ingredients"].([]interface{}); ok {
			return &RecipeBundle{
				Recipe:      recipe,
				Ingredients: common.RecordList(payload["ingredients"]),
			}
		}
	}

	if nested, ok := payload["payload"].(map[string]interface{}); ok {
		if data, ok := nested["data"].(map[string]interface{}); ok {
			ingredients := common.RecordList(data["ingredients"])
			if ingredients == nil {
				ingredients = []map[string]interface{}{}
			}
			return &RecipeBundle{
				Recipe:      data,
				Ingredients: ingredients,
			}
		}
	}

	return &RecipeBundle{
		Recipe:      map[string]interface{}{},
		Ingredients: []map[string]interface{}{},
	}
}

// IngredientNames 從食譜資料抽出食材顯示名稱
// 食材名稱可能藏在多個欄位別名下；大小寫不敏感去重，保留首次出現順序
func IngredientNames(bundle *RecipeBundle) []string {
	names := make([]string, 0)
	seen := make(map[string]struct{})

	addName := func(value interface{}) {
		s, ok := value.(string)
		if !ok {
			return
		}
		cleaned := strings.TrimSpace(s)
		if cleaned == "" {
			return
		}
		key := strings.ToLower(cleaned)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		names = append(names, cleaned)
	}

	for _, item := range bundle.Ingredients {
		addName(firstPresent(item, "ingredient", "name", "ingredient_name", "ingredient_Phrase"))
	}

	if rawList, ok := bundle.Recipe["ingredients"].([]interface{}); ok {
		for _, item := range rawList {
			switch v := item.(type) {
			case map[string]interface{}:
				addName(firstPresent(v, "ingredient", "name"))
			case string:
				addName(v)
			}
		}
	}

	return names
}

// firstPresent 依序嘗試欄位別名，回傳第一個非空白字串值
func firstPresent(record map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if s, ok := record[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return nil
}
