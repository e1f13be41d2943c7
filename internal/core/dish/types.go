package dish

import (
	"fmt"
	"strings"
)

// TimeOfDay 用餐時段
type TimeOfDay string

// 固定的三個時段標籤
const (
	Breakfast TimeOfDay = "Breakfast"
	Lunch     TimeOfDay = "Lunch"
	Dinner    TimeOfDay = "Dinner"
)

// Valid 是否為已知的時段
func (t TimeOfDay) Valid() bool {
	switch t {
	case Breakfast, Lunch, Dinner:
		return true
	}
	return false
}

// ParseTimeOfDay 解析時段標籤（不分大小寫），不接受其他自由文字
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, t := range []TimeOfDay{Breakfast, Lunch, Dinner} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown time of day %q", s)
}

// OutputMode 決定要求模型輸出哪一種附加資訊
type OutputMode string

const (
	OutputNutrition     OutputMode = "nutrition"
	OutputImageKeywords OutputMode = "image_keywords"
)

// SuggestionRequest 一次推薦請求
type SuggestionRequest struct {
	TimeOfDay         TimeOfDay `json:"timeOfDay"`
	ExcludedDishNames []string  `json:"excludedDishNames"`
}

// Nutrient 單一營養素估計值，Quantity 內含單位（如 "15g"、"350 kcal"）
type Nutrient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// SuggestionResponse 經過驗證與正規化的推薦結果
type SuggestionResponse struct {
	DishName    string   `json:"dishName"`
	Recipe      string   `json:"recipe"`
	Ingredients []string `json:"ingredients"`
	// NutritionalInfo 沒有資料時為空陣列，不會自行捏造數值
	NutritionalInfo     []Nutrient `json:"nutritionalInfo"`
	ImageSearchKeywords string     `json:"imageSearchKeywords,omitempty"`
	ImageURL            string     `json:"imageUrl,omitempty"`
}

// Clone 深拷貝
func (r *SuggestionResponse) Clone() *SuggestionResponse {
	if r == nil {
		return nil
	}
	out := *r
	out.Ingredients = append([]string(nil), r.Ingredients...)
	out.NutritionalInfo = append([]Nutrient(nil), r.NutritionalInfo...)
	if out.Ingredients == nil {
		out.Ingredients = []string{}
	}
	if out.NutritionalInfo == nil {
		out.NutritionalInfo = []Nutrient{}
	}
	return &out
}
