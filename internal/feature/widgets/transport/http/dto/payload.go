package dto

// ErrorResponse はエラーレスポンスを表します。
type ErrorResponse struct {
	Error string `json:"error"`
}
