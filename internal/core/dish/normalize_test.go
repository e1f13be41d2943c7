package dish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAndNormalize(t *testing.T, content string) (*SuggestionResponse, error) {
	t.Helper()
	raw, err := decodeSuggestion(content)
	require.NoError(t, err)
	return normalizeSuggestion(raw, "")
}

func TestFallbackImageKeywords(t *testing.T) {
	resp, err := decodeAndNormalize(t, `{"dishName": "Palak Paneer", "recipe": "1. Cook.", "ingredients": ["spinach"], "imageSearchKeywords": ""}`)
	require.NoError(t, err)
	assert.Equal(t, "Palak Paneer North Indian food vegetarian", resp.ImageSearchKeywords)

	raw, err := decodeSuggestion(`{"dishName": "Aloo Paratha", "recipe": "1. Roll.", "ingredients": ["atta"], "imageSearchKeywords": "   "}`)
	require.NoError(t, err)
	resp, err = normalizeSuggestion(raw, "Punjabi breakfast")
	require.NoError(t, err)
	assert.Equal(t, "Aloo Paratha Punjabi breakfast", resp.ImageSearchKeywords)
}

func TestImageURLWinsOverKeywords(t *testing.T) {
	resp, err := decodeAndNormalize(t, `{"dishName": "Rajma", "recipe": "1. Cook.", "ingredients": ["kidney beans"], "imageSearchKeywords": "rajma chawal", "imageUrl": " https://img.example/rajma.jpg "}`)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/rajma.jpg", resp.ImageURL)
	assert.Empty(t, resp.ImageSearchKeywords)
}

func TestEmptyNutritionIsExplicitlyEmpty(t *testing.T) {
	for _, content := range []string{
		`{"dishName": "Rajma", "recipe": "1. Cook.", "ingredients": ["beans"]}`,
		`{"dishName": "Rajma", "recipe": "1. Cook.", "ingredients": ["beans"], "nutritionalInfo": null}`,
		`{"dishName": "Rajma", "recipe": "1. Cook.", "ingredients": ["beans"], "nutritionalInfo": [{"name": "", "quantity": "1g"}]}`,
	} {
		resp, err := decodeAndNormalize(t, content)
		require.NoError(t, err)
		assert.NotNil(t, resp.NutritionalInfo)
		assert.Empty(t, resp.NutritionalInfo)
	}
}

func TestEmptyIngredientListIsAccepted(t *testing.T) {
	resp, err := decodeAndNormalize(t, `{"dishName": "Masala Chai", "recipe": "1. Boil.", "ingredients": ["", "  "]}`)
	require.NoError(t, err)
	assert.NotNil(t, resp.Ingredients)
	assert.Empty(t, resp.Ingredients)
}

func TestNormalizeRecipe(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"numbered", `"1. Chop onions.\r\n2. Saute onions.\n\n"`, "1. Chop onions.\n2. Saute onions."},
		{"plain sentences", `"Chop onions.\nSaute onions."`, "Chop onions.\nSaute onions."},
		{"escaped newlines", `"1. Chop onions.\\n2. Saute onions."`, "1. Chop onions.\n2. Saute onions."},
		{"array of steps", `["1. Chop onions.", " ", "2. Saute onions."]`, "1. Chop onions.\n2. Saute onions."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeRecipe([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := normalizeRecipe([]byte(`42`))
	assert.Error(t, err)
	_, err = normalizeRecipe(nil)
	assert.ErrorIs(t, err, errMissingRecipe)
}

func TestDishNameWhitespaceCollapsed(t *testing.T) {
	resp, err := decodeAndNormalize(t, `{"dishName": "  Chana   Masala ", "recipe": "1. Cook.", "ingredients": ["chickpeas"]}`)
	require.NoError(t, err)
	assert.Equal(t, "Chana Masala", resp.DishName)
}

func TestLooselyTypedEnrichment(t *testing.T) {
	const base = `"dishName": "Poha", "recipe": "1. Rinse flattened rice.", "ingredients": ["poha", "onion"]`

	tests := []struct {
		name      string
		extra     string
		nutrition []Nutrient
		keywords  string
	}{
		{
			name:      "numeric quantity",
			extra:     `"nutritionalInfo": [{"name": "Protein", "quantity": 15}, {"name": "Calories", "quantity": "250 kcal"}]`,
			nutrition: []Nutrient{{"Protein", "15"}, {"Calories", "250 kcal"}},
			keywords:  "Poha North Indian food vegetarian",
		},
		{
			name:      "nutrition as object",
			extra:     `"nutritionalInfo": {"Protein": "6g", "Calories": 250, "Fat": ""}`,
			nutrition: []Nutrient{{"Calories", "250"}, {"Protein", "6g"}},
			keywords:  "Poha North Indian food vegetarian",
		},
		{
			name:      "nutrition of wrong type",
			extra:     `"nutritionalInfo": "about 250 calories"`,
			nutrition: []Nutrient{},
			keywords:  "Poha North Indian food vegetarian",
		},
		{
			name:      "keywords as list",
			extra:     `"imageSearchKeywords": ["poha", " breakfast "]`,
			nutrition: []Nutrient{},
			keywords:  "poha breakfast",
		},
		{
			name:      "keywords of wrong type",
			extra:     `"imageSearchKeywords": {"primary": "poha"}`,
			nutrition: []Nutrient{},
			keywords:  "Poha North Indian food vegetarian",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := decodeAndNormalize(t, "{"+base+", "+tt.extra+"}")
			require.NoError(t, err)
			assert.Equal(t, "Poha", resp.DishName)
			assert.Equal(t, tt.nutrition, resp.NutritionalInfo)
			assert.Equal(t, tt.keywords, resp.ImageSearchKeywords)
		})
	}
}

func TestMalformedImageURLFallsBackToKeywords(t *testing.T) {
	resp, err := decodeAndNormalize(t, `{"dishName": "Poha", "recipe": "1. Cook.", "ingredients": ["poha"], "imageUrl": 42, "imageSearchKeywords": "poha plate"}`)
	require.NoError(t, err)
	assert.Empty(t, resp.ImageURL)
	assert.Equal(t, "poha plate", resp.ImageSearchKeywords)
}
