package dish

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"dish-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

// DefaultCuisineDescriptor 圖片關鍵字缺漏時附加在菜名後的描述
const DefaultCuisineDescriptor = "North Indian food vegetarian"

// rawSuggestion 模型輸出的寬鬆結構，指標欄位用來區分「缺少」與「空值」。
// 附加欄位保留原始 JSON，型別不符時改用預設值而不是整筆失敗。
type rawSuggestion struct {
	DishName            *string         `json:"dishName"`
	Recipe              json.RawMessage `json:"recipe"`
	Ingredients         *[]string       `json:"ingredients"`
	NutritionalInfo     json.RawMessage `json:"nutritionalInfo"`
	ImageSearchKeywords json.RawMessage `json:"imageSearchKeywords"`
	ImageURL            json.RawMessage `json:"imageUrl"`
}

// rawNutrient 營養素的寬鬆結構，quantity 可能是字串或數字
type rawNutrient struct {
	Name     json.RawMessage `json:"name"`
	Quantity json.RawMessage `json:"quantity"`
}

var (
	errNoJSONObject      = errors.New("completion does not contain a JSON object")
	errMissingDishName   = errors.New("dishName is missing")
	errMissingRecipe     = errors.New("recipe is missing")
	errMissingIngredient = errors.New("ingredients are missing")
)

// decodeSuggestion 從模型輸出中取出 JSON 物件並解析，失敗時補上鍵的雙引號再試一次
func decodeSuggestion(content string) (*rawSuggestion, error) {
	obj, ok := common.ExtractJSONObject(content)
	if !ok {
		return nil, errNoJSONObject
	}

	var raw rawSuggestion
	err := common.ParseJSON(obj, &raw)
	if err == nil {
		return &raw, nil
	}

	raw = rawSuggestion{}
	if retryErr := common.ParseJSON(common.QuoteJSONKeys(obj), &raw); retryErr != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	return &raw, nil
}

// normalizeSuggestion 驗證必要欄位並套用附加資訊的預設值
func normalizeSuggestion(raw *rawSuggestion, descriptor string) (*SuggestionResponse, error) {
	if raw.DishName == nil || strings.TrimSpace(*raw.DishName) == "" {
		return nil, errMissingDishName
	}
	recipe, err := normalizeRecipe(raw.Recipe)
	if err != nil {
		return nil, err
	}
	if raw.Ingredients == nil {
		return nil, errMissingIngredient
	}

	out := &SuggestionResponse{
		DishName:    strings.Join(strings.Fields(*raw.DishName), " "),
		Recipe:      recipe,
		Ingredients: make([]string, 0, len(*raw.Ingredients)),
	}

	for _, ing := range *raw.Ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			out.Ingredients = append(out.Ingredients, ing)
		}
	}
	if len(out.Ingredients) == 0 {
		common.LogWarn("Suggestion has an empty ingredient list", zap.String("dish", out.DishName))
	}

	nutrition, err := normalizeNutrition(raw.NutritionalInfo)
	if err != nil {
		common.LogWarn("Ignoring malformed nutritional information",
			zap.String("dish", out.DishName),
			zap.Error(err),
		)
	}
	out.NutritionalInfo = nutrition
	if len(out.NutritionalInfo) == 0 {
		common.LogWarn("Received empty nutritional information", zap.String("dish", out.DishName))
	}

	// 圖片欄位最多只保留一個
	imageURL, ok := scalarText(raw.ImageURL)
	if !ok {
		common.LogWarn("Ignoring malformed imageUrl", zap.String("dish", out.DishName))
	}
	out.ImageURL = imageURL
	if out.ImageURL == "" {
		keywords, ok := keywordText(raw.ImageSearchKeywords)
		if !ok {
			common.LogWarn("Ignoring malformed imageSearchKeywords", zap.String("dish", out.DishName))
		}
		out.ImageSearchKeywords = keywords
		if out.ImageSearchKeywords == "" {
			out.ImageSearchKeywords = fallbackKeywords(out.DishName, descriptor)
			common.LogDebug("Using fallback image keywords",
				zap.String("dish", out.DishName),
				zap.String("keywords", out.ImageSearchKeywords),
			)
		}
	}

	return out, nil
}

// normalizeNutrition 接受 [{name, quantity}] 或 {name: quantity}，
// 數字型的 quantity 轉為字串，名稱或數量為空的項目略過。
// 回傳值永遠不為 nil；格式無法辨識時回傳空清單與錯誤。
func normalizeNutrition(raw json.RawMessage) ([]Nutrient, error) {
	out := []Nutrient{}
	if isNull(raw) {
		return out, nil
	}

	var items []rawNutrient
	if err := json.Unmarshal(raw, &items); err == nil {
		for _, item := range items {
			name, _ := scalarText(item.Name)
			quantity, _ := scalarText(item.Quantity)
			if name == "" || quantity == "" {
				continue
			}
			out = append(out, Nutrient{Name: name, Quantity: quantity})
		}
		return out, nil
	}

	var byName map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byName); err != nil {
		return out, fmt.Errorf("nutritionalInfo must be a list or an object: %w", err)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		quantity, _ := scalarText(byName[name])
		if name = strings.TrimSpace(name); name == "" || quantity == "" {
			continue
		}
		out = append(out, Nutrient{Name: name, Quantity: quantity})
	}
	return out, nil
}

// keywordText 接受字串或字串陣列，合併為以空白分隔的關鍵字
func keywordText(raw json.RawMessage) (string, bool) {
	if text, ok := scalarText(raw); ok {
		return strings.Join(strings.Fields(text), " "), true
	}
	var words []string
	if err := json.Unmarshal(raw, &words); err != nil {
		return "", false
	}
	return strings.Join(strings.Fields(strings.Join(words, " ")), " "), true
}

// scalarText 將字串或數字轉為去除前後空白的文字；缺少或 null 視為空字串
func scalarText(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", true
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text), true
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String(), true
	}
	return "", false
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// fallbackKeywords 由菜名與固定描述組成圖片搜尋關鍵字
func fallbackKeywords(dishName, descriptor string) string {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		descriptor = DefaultCuisineDescriptor
	}
	return dishName + " " + descriptor
}

// normalizeRecipe 接受字串或字串陣列，統一為以 \n 分隔的步驟
func normalizeRecipe(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", errMissingRecipe
	}

	var lines []string
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		// 部分模型會輸出跳脫過的換行
		text = strings.ReplaceAll(text, `\n`, "\n")
		lines = strings.Split(text, "\n")
	} else if err := json.Unmarshal(raw, &lines); err != nil {
		return "", fmt.Errorf("recipe must be a string or a list of steps: %w", err)
	}

	steps := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			steps = append(steps, line)
		}
	}
	if len(steps) == 0 {
		return "", errMissingRecipe
	}
	return strings.Join(steps, "\n"), nil
}
