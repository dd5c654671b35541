package substitute

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"flavor-remix/internal/core/flavor"
	substituteService "flavor-remix/internal/core/substitute"
	"flavor-remix/internal/pkg/common"
)

// SimilarityRequest 風味相似度請求
type SimilarityRequest struct {
	ProfileA []string `json:"profile_a" binding:"required"`
	ProfileB []string `json:"profile_b" binding:"required"`
}

// MatchRequest 食材名稱比對請求
type MatchRequest struct {
	Ingredient string   `json:"ingredient" binding:"required"`
	Candidates []string `json:"candidates" binding:"required"`
}

// CandidatesRequest 候選擷取請求，payload 為任意 JSON 結構
type CandidatesRequest struct {
	Payload    interface{} `json:"payload" binding:"required"`
	Ingredient string      `json:"ingredient"`
}

// RankRequest 候選排名請求
type RankRequest struct {
	TargetProfile []string `json:"target_profile"`
	Ingredient    string   `json:"ingredient"`
	Candidates    []string `json:"candidates" binding:"required"`
	Skip          string   `json:"skip"`
	Limit         int      `json:"limit"`
}

// ensureRequestID 取得或產生請求 ID
func ensureRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
		c.Header("X-Request-ID", requestID)
	}
	return requestID
}

// respondError 依錯誤型別決定狀態碼與回應內容
func respondError(c *gin.Context, requestID string, err error) {
	var notFound *substituteService.NotFoundError
	if errors.As(err, &notFound) {
		common.LogInfo("查無替代結果",
			zap.String("request_id", requestID),
			zap.String("reason", notFound.Reason),
		)
		c.JSON(http.StatusNotFound, gin.H{
			"error":       notFound.Message,
			"code":        common.ErrCodeNotFound,
			"reason":      notFound.Reason,
			"ingredients": notFound.Ingredients,
		})
		return
	}

	var custom *common.CustomError
	if errors.As(err, &custom) {
		common.LogError("請求處理失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
			zap.String("code", custom.Code),
		)
		c.JSON(custom.Status, gin.H{
			"error": custom.Message,
			"code":  custom.Code,
		})
		return
	}

	if upstream, ok := common.AsUpstreamError(err); ok {
		common.LogError("上游服務錯誤",
			zap.Error(err),
			zap.String("request_id", requestID),
			zap.String("upstream", upstream.Upstream),
			zap.Int("status", upstream.StatusCode),
		)
		code := common.ErrCodeBadGateway
		if upstream.StatusCode == http.StatusUnauthorized {
			code = common.ErrCodeUnauthorized
		}
		c.JSON(upstream.StatusCode, gin.H{
			"error":    upstream.Message,
			"code":     code,
			"upstream": upstream.Upstream,
		})
		return
	}

	if common.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "resource not found",
			"code":  common.ErrCodeNotFound,
		})
		return
	}

	common.LogError("未預期的錯誤",
		zap.Error(err),
		zap.String("request_id", requestID),
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": common.ErrInternalError.Message,
		"code":  common.ErrCodeInternalError,
	})
}

// HandleProfile 處理 GET /flavor/profile 風味輪廓查詢
func HandleProfile(profiles substituteService.ProfileSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := ensureRequestID(c)

		ingredient := c.Query("ingredient")
		if ingredient == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "ingredient query parameter is required",
				"code":  common.ErrCodeInvalidRequest,
			})
			return
		}

		profile, err := profiles.FlavorProfile(c.Request.Context(), ingredient)
		if err != nil {
			respondError(c, requestID, err)
			return
		}
		if profile.IsEmpty() {
			respondError(c, requestID, &substituteService.NotFoundError{
				Reason:  substituteService.ReasonNoFlavorProfile,
				Message: "no flavor profile available for " + ingredient,
			})
			return
		}

		common.LogInfo("風味輪廓查詢成功",
			zap.String("request_id", requestID),
			zap.String("ingredient", ingredient),
			zap.Int("profile_size", profile.Size()),
		)

		c.JSON(http.StatusOK, gin.H{
			"ingredient":   ingredient,
			"profile":      profile,
			"profile_size": profile.Size(),
		})
	}
}

// HandleSimilarity 處理 POST /flavor/similarity 相似度計算
func HandleSimilarity() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := ensureRequestID(c)

		var req SimilarityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.LogError("請求格式無效",
				zap.Error(err),
				zap.String("request_id", requestID),
			)
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request format",
				"code":  common.ErrCodeInvalidRequest,
			})
			return
		}

		profileA := flavor.NewProfile(req.ProfileA)
		profileB := flavor.NewProfile(req.ProfileB)
		result := flavor.Score(profileA, profileB)

		c.JSON(http.StatusOK, gin.H{
			"profile_a":  profileA,
			"profile_b":  profileB,
			"similarity": result,
		})
	}
}

// HandleMatch 處理 POST /substitute/match 食材名稱比對
func HandleMatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := ensureRequestID(c)

		var req MatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.LogError("請求格式無效",
				zap.Error(err),
				zap.String("request_id", requestID),
			)
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request format",
				"code":  common.ErrCodeInvalidRequest,
			})
			return
		}

		result := flavor.Match(req.Ingredient, req.Candidates)

		common.LogInfo("食材名稱比對完成",
			zap.String("request_id", requestID),
			zap.String("ingredient", req.Ingredient),
			zap.Bool("matched", result.Matched),
			zap.Float64("confidence", result.Confidence),
		)

		c.JSON(http.StatusOK, result)
	}
}

// HandleCandidates 處理 POST /substitute/candidates 候選擷取
func HandleCandidates() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := ensureRequestID(c)

		var req CandidatesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.LogError("請求格式無效",
				zap.Error(err),
				zap.String("request_id", requestID),
			)
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request format",
				"code":  common.ErrCodeInvalidRequest,
			})
			return
		}

		candidates := flavor.ExtractCandidates(req.Payload, req.Ingredient)

		common.LogInfo("候選擷取完成",
			zap.String("request_id", requestID),
			zap.Int("candidates_count", len(candidates)),
		)

		c.JSON(http.StatusOK, gin.H{
			"candidates": candidates,
			"count":      len(candidates),
		})
	}
}

// HandleRank 處理 POST /substitute/rank 候選排名
// target_profile 與 ingredient 至少需提供其一；前者優先
func HandleRank(service *substituteService.Service, profiles substituteService.ProfileSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := ensureRequestID(c)

		var req RankRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.LogError("請求格式無效",
				zap.Error(err),
				zap.String("request_id", requestID),
			)
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request format",
				"code":  common.ErrCodeInvalidRequest,
			})
			return
		}

		target := flavor.NewProfile(req.TargetProfile)
		skip := req.Skip
		if target.IsEmpty() {
			if req.Ingredient == "" {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "provide at least one of: target_profile or ingredient",
					"code":  common.ErrCodeInvalidRequest,
				})
				return
			}

			profile, err := profiles.FlavorProfile(c.Request.Context(), req.Ingredient)
			if err != nil {
				respondError(c, requestID, err)
				return
			}
			if profile.IsEmpty() {
				respondError(c, requestID, &substituteService.NotFoundError{
					Reason:  substituteService.ReasonNoFlavorProfile,
					Message: "no flavor profile available for " + req.Ingredient,
				})
				return
			}
			target = profile
			if skip == "" {
				skip = req.Ingredient
			}
		}

		ranked := service.Rank(c.Request.Context(), target, req.Candidates, skip, req.Limit)

		common.LogInfo("候選排名完成",
			zap.String("request_id", requestID),
			zap.Int("pool_size", len(req.Candidates)),
			zap.Int("ranked_count", len(ranked)),
		)

		c.JSON(http.StatusOK, gin.H{
			"target_profile": target,
			"replacements":   ranked,
		})
	}
}

// HandleRecipeSubstitute 處理 POST /substitute/recipe 食譜替代建議
func HandleRecipeSubstitute(service *substituteService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := ensureRequestID(c)

		common.LogInfo("開始處理食譜替代請求",
			zap.String("request_id", requestID),
			zap.String("client_ip", c.ClientIP()),
		)

		var req substituteService.RecipeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.LogError("請求格式無效",
				zap.Error(err),
				zap.String("request_id", requestID),
			)
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request format",
				"code":  common.ErrCodeInvalidRequest,
			})
			return
		}

		result, err := service.SuggestForRecipe(c.Request.Context(), &req)
		if err != nil {
			respondError(c, requestID, err)
			return
		}

		common.LogInfo("食譜替代建議完成",
			zap.String("request_id", requestID),
			zap.String("matched_ingredient", result.Match.Name),
			zap.Int("pool_size", result.PoolSize),
			zap.Int("replacements_count", len(result.Replacements)),
		)

		c.JSON(http.StatusOK, result)
	}
}
