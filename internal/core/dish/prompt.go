package dish

import (
	"fmt"
	"strings"
	"text/template"
)

const systemPrompt = `You are a home cook specialising in healthy North Indian vegetarian food.
You always answer with one JSON object and nothing else: no markdown fences, no commentary.`

var suggestionTemplate = template.Must(template.New("suggestion").Parse(
	`Suggest a healthy **vegetarian** North Indian dish suitable for {{.TimeOfDay}}.
Provide the following details:
1. dishName: The name of the suggested dish.
2. recipe: A clear and concise recipe for the dish. **Format the steps numerically (e.g. "1. Chop onions.\n2. Saute onions.") with each step on a new line.**
3. ingredients: A non-empty list of required ingredients, one string per ingredient.
{{- if .Nutrition}}
4. nutritionalInfo: An array of estimated nutritional information per serving. Include objects for Calories (kcal), Protein (g), Fiber (g), Fat (g) and Carbohydrates (g). Each object has "name" and "quantity" with the unit embedded in the quantity (e.g. {"name": "Protein", "quantity": "15g"}). Use reasonable estimates for a standard serving.
{{- else}}
4. imageSearchKeywords: A short phrase (3 to 6 words) that would find a photo of this dish with an image search engine.
{{- end}}

Focus on healthy options. Ensure the suggested dish is strictly vegetarian (no meat, poultry, fish or eggs).
{{- if .Excluded}}

**Important:** Do not suggest any of the following dishes that have already been suggested:
{{- range .Excluded}}
- {{.}}
{{- end}}
Suggest something different.
{{- end}}

Respond with a single JSON object using exactly these keys: {{.Keys}}.`))

type promptData struct {
	TimeOfDay TimeOfDay
	Nutrition bool
	Excluded  []string
	Keys      string
}

// buildPrompt 組裝推薦用的使用者提示詞
func buildPrompt(tod TimeOfDay, excluded []string, mode OutputMode) (string, error) {
	data := promptData{
		TimeOfDay: tod,
		Nutrition: mode != OutputImageKeywords,
		Excluded:  excluded,
	}
	keys := []string{`"dishName"`, `"recipe"`, `"ingredients"`}
	if data.Nutrition {
		keys = append(keys, `"nutritionalInfo"`)
	} else {
		keys = append(keys, `"imageSearchKeywords"`)
	}
	data.Keys = strings.Join(keys, ", ")

	var sb strings.Builder
	if err := suggestionTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return sb.String(), nil
}

// cleanExcluded 去除空白與重複（不分大小寫），保留首次出現的順序
func cleanExcluded(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.Join(strings.Fields(name), " ")
		if name == "" || containsFold(out, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// containsFold 判斷清單中是否已有同名菜色（不分大小寫）
func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// ContainsDish 判斷菜名是否已在排除清單中
func ContainsDish(names []string, name string) bool {
	return containsFold(names, strings.Join(strings.Fields(name), " "))
}
