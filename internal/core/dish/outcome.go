package dish

// Outcome 呈現層唯一會收到的結果：成功時帶推薦，失敗時帶錯誤訊息
type Outcome struct {
	Suggestion *SuggestionResponse `json:"suggestion,omitempty"`
	Error      string              `json:"error,omitempty"`
	Kind       ErrorKind           `json:"kind,omitempty"`
}

// NewOutcome 將推薦結果或錯誤轉換為可直接呈現的結果
func NewOutcome(resp *SuggestionResponse, err error) Outcome {
	if err != nil {
		return Outcome{
			Error: "Failed to get suggestion: " + err.Error(),
			Kind:  KindOf(err),
		}
	}
	if resp == nil {
		return Outcome{Error: "Failed to get suggestion: empty result"}
	}
	return Outcome{Suggestion: resp}
}

// Failed 是否為失敗結果
func (o Outcome) Failed() bool {
	return o.Error != ""
}
