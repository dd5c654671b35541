package common

import (
	"errors"
	"net/http"
	"strings"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// UpstreamError 上游服務錯誤，保留上游回傳的 HTTP 狀態碼
type UpstreamError struct {
	Upstream   string // 上游名稱（flavordb / recipedb）
	Path       string // 請求路徑
	Message    string // 錯誤信息
	StatusCode int    // 上游狀態碼（無法取得時為 502）
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// NewUpstreamError 創建上游服務錯誤
func NewUpstreamError(upstream, path, message string, statusCode int) *UpstreamError {
	if statusCode == 0 {
		statusCode = http.StatusBadGateway
	}
	return &UpstreamError{
		Upstream:   upstream,
		Path:       path,
		Message:    message,
		StatusCode: statusCode,
	}
}

// AsUpstreamError 檢查是否為上游服務錯誤
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// ErrNotFound 上游查無資料的標記錯誤，核心層將其視為空結果而非失敗
var ErrNotFound = errors.New("not found")

// IsNotFound 檢查是否為查無資料
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	if ue, ok := AsUpstreamError(err); ok {
		return ue.StatusCode == http.StatusNotFound
	}
	return false
}

// 上游錯誤訊息中的授權失敗標記，命中時狀態碼改判為 401
var authErrorMarkers = []string{
	"invalid api key",
	"api key is not provided",
	"apikey is not provided",
	"only bearer token is allowed",
	"not enough tokens",
	"unauthorized",
	"forbidden",
	"token expired",
}

// LooksLikeAuthError 檢查上游錯誤文字是否為授權失敗
func LooksLikeAuthError(errorText string) bool {
	if errorText == "" {
		return false
	}
	lowered := strings.ToLower(errorText)
	for _, marker := range authErrorMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeUnauthorized    = "UNAUTHORIZED"      // 401
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE" // 413
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeBadGateway         = "BAD_GATEWAY"         // 502
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "未授權的訪問", http.StatusUnauthorized, nil)
	ErrResourceMissing = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)

	// 業務錯誤
	ErrMissingCredentials = NewError("MISSING_CREDENTIALS", "缺少上游憑證設定", http.StatusInternalServerError, nil)
	ErrCacheFull          = NewError("CACHE_FULL", "緩存已滿", http.StatusServiceUnavailable, nil)
	ErrCacheDisabled      = NewError("CACHE_DISABLED", "緩存已禁用", http.StatusServiceUnavailable, nil)
)
