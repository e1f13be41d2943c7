package dish

import "errors"

// ErrorKind 推薦失敗的分類
type ErrorKind string

const (
	// ServiceUnavailable 生成服務呼叫無法完成（網路、逾時、供應商錯誤）
	ServiceUnavailable ErrorKind = "service_unavailable"
	// InvalidResponse 生成服務回傳的內容缺少必要欄位或無法解析
	InvalidResponse ErrorKind = "invalid_response"
	// InvalidRequest 請求本身不合法，未送出至生成服務
	InvalidRequest ErrorKind = "invalid_request"
)

// SuggestionError 推薦錯誤
type SuggestionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *SuggestionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *SuggestionError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, message string, err error) *SuggestionError {
	return &SuggestionError{Kind: kind, Message: message, Err: err}
}

// KindOf 取出錯誤分類，非 SuggestionError 時回傳空字串
func KindOf(err error) ErrorKind {
	var se *SuggestionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
