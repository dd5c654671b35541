package flavordb

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"flavor-remix/internal/core/flavor"
	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"
)

const upstreamName = "flavordb"

// Client FlavorDB 客戶端：分子風味資料與食材配對查詢
type Client struct {
	client       *resty.Client
	moleculePage int
	moleculeSize int
}

// NewClient 創建 FlavorDB 客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.FlavorDB.BaseURL).
		SetTimeout(cfg.FlavorDB.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.FlavorDB.AuthToken)).
		SetHeader("X-API-Key", cfg.FlavorDB.AuthToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		client:       client,
		moleculePage: cfg.Substitute.MoleculePage,
		moleculeSize: cfg.Substitute.MoleculeSize,
	}
}

// get 發送請求並解析 JSON 回應
func (c *Client) get(ctx context.Context, path string, params map[string]string) (map[string]interface{}, error) {
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	common.LogUpstreamCall(upstreamName, path, time.Since(start), err)

	if err != nil {
		return nil, common.NewUpstreamError(upstreamName, path,
			fmt.Sprintf("FlavorDB request failed for %s: %v", path, err), http.StatusBadGateway)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		status := resp.StatusCode()
		apiError := extractAPIError(resp.Body())
		if common.LooksLikeAuthError(apiError) {
			status = http.StatusUnauthorized
		}
		message := fmt.Sprintf("FlavorDB request failed for %s: HTTP %d.", path, status)
		if apiError != "" {
			message += " " + apiError
		}
		return nil, common.NewUpstreamError(upstreamName, path, message, status)
	}

	var payload map[string]interface{}
	if err := common.ParseJSONBytes(resp.Body(), &payload); err != nil {
		return nil, common.NewUpstreamError(upstreamName, path,
			fmt.Sprintf("FlavorDB returned non-JSON response for %s", path), http.StatusBadGateway)
	}

	return payload, nil
}

// extractAPIError 從上游錯誤回應取出錯誤文字
func extractAPIError(body []byte) string {
	var payload map[string]interface{}
	if err := common.ParseJSONBytes(body, &payload); err != nil {
		return ""
	}
	return common.FirstStringValue(payload, "error", "message", "detail")
}

// MoleculesByCommonName 以食材俗名查詢分子資料
func (c *Client) MoleculesByCommonName(ctx context.Context, name string, page, size int) (map[string]interface{}, error) {
	return c.get(ctx, "/molecules_data/by-commonName", map[string]string{
		"common_name": name,
		"page":        fmt.Sprintf("%d", page),
		"size":        fmt.Sprintf("%d", size),
	})
}

// PairingsByAlias 查詢食材的配對資料
func (c *Client) PairingsByAlias(ctx context.Context, ingredient string) (map[string]interface{}, error) {
	return c.get(ctx, "/food/by-alias", map[string]string{
		"food_pair": ingredient,
	})
}

// PairingPayload 取得配對回應供候選擷取使用；查無資料時回傳 nil 與 ErrNotFound
func (c *Client) PairingPayload(ctx context.Context, ingredient string) (map[string]interface{}, error) {
	payload, err := c.PairingsByAlias(ctx, ingredient)
	if err != nil {
		if ue, ok := common.AsUpstreamError(err); ok && ue.StatusCode == http.StatusNotFound {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return payload, nil
}

// FlavorProfile 組出一個食材的風味輪廓
// 分子資料查無結果（上游以 400 或 404 表示）或產出零個描述詞時，
// 退回以配對資料推導輪廓；兩個來源皆無資料時回傳空輪廓，由呼叫端視為查無資料
func (c *Client) FlavorProfile(ctx context.Context, name string) (flavor.Profile, error) {
	payload, err := c.MoleculesByCommonName(ctx, name, c.moleculePage, c.moleculeSize)
	if err != nil {
		if ue, ok := common.AsUpstreamError(err); ok && isNotFoundStatus(ue.StatusCode) {
			return c.pairingProfile(ctx, name)
		}
		return nil, err
	}

	profile := flavor.ProfileFromRecords(extractItems(payload))
	if !profile.IsEmpty() {
		return profile, nil
	}

	common.LogDebug("分子資料無風味描述詞，改用配對資料推導",
		zap.String("ingredient", name),
	)
	return c.pairingProfile(ctx, name)
}

// pairingProfile 由配對資料列推導輪廓
func (c *Client) pairingProfile(ctx context.Context, name string) (flavor.Profile, error) {
	payload, err := c.PairingsByAlias(ctx, name)
	if err != nil {
		if ue, ok := common.AsUpstreamError(err); ok && ue.StatusCode == http.StatusNotFound {
			return flavor.Profile{}, nil
		}
		return nil, err
	}

	rows := common.RecordList(payload["topSimilarEntities"])
	return flavor.ProfileFromPairings(rows), nil
}

// isNotFoundStatus 部分部署以 400 表示查無分子資料，另一些用 404；皆視為空結果訊號
func isNotFoundStatus(status int) bool {
	return status == http.StatusBadRequest || status == http.StatusNotFound
}

// extractItems 從鬆散的回應外殼取出資料列
// 依序嘗試 data/content/results，再嘗試巢狀 payload 物件下的同名欄位
func extractItems(payload map[string]interface{}) []map[string]interface{} {
	candidates := []interface{}{
		payload["data"],
		payload["content"],
		payload["results"],
	}
	if nested, ok := payload["payload"].(map[string]interface{}); ok {
		candidates = append(candidates, nested["data"], nested["content"], nested["results"])
	}

	for _, value := range candidates {
		if records := common.RecordList(value); records != nil {
			return records
		}
	}
	return nil
}
