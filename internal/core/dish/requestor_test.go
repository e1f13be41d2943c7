package dish

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dish-suggester/internal/core/ai/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	calls   int
	system  string
	prompt  string
	content string
	err     error
}

func (f *fakeGenerator) ProcessRequest(ctx context.Context, systemPrompt, prompt string) (*service.Response, error) {
	f.calls++
	f.system = systemPrompt
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &service.Response{Content: f.content}, nil
}

const palakPaneer = `{
  "dishName": "Palak Paneer",
  "recipe": "1. Blanch the spinach.\n2. Blend into a puree.\n3. Simmer with paneer.",
  "ingredients": ["spinach", "paneer", "garlic"],
  "nutritionalInfo": [{"name": "Calories", "quantity": "320 kcal"}, {"name": "Protein", "quantity": "18g"}],
  "imageSearchKeywords": "palak paneer curry"
}`

func TestRequestSuggestion(t *testing.T) {
	gen := &fakeGenerator{content: palakPaneer}
	r := NewRequestor(gen, Options{})

	resp, err := r.RequestSuggestion(context.Background(), Dinner, []string{"Dal Makhani", " dal  makhani ", "", "Chole"})
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "Palak Paneer", resp.DishName)
	assert.Equal(t, "1. Blanch the spinach.\n2. Blend into a puree.\n3. Simmer with paneer.", resp.Recipe)
	assert.Equal(t, []string{"spinach", "paneer", "garlic"}, resp.Ingredients)
	assert.Equal(t, []Nutrient{{"Calories", "320 kcal"}, {"Protein", "18g"}}, resp.NutritionalInfo)
	assert.Equal(t, "palak paneer curry", resp.ImageSearchKeywords)

	assert.Contains(t, gen.prompt, "suitable for Dinner")
	assert.Contains(t, gen.prompt, "- Dal Makhani\n- Chole\nSuggest something different.")
	assert.Equal(t, 1, strings.Count(strings.ToLower(gen.prompt), "dal makhani"))
	assert.Contains(t, gen.prompt, `"nutritionalInfo"`)
	assert.NotEmpty(t, gen.system)
}

func TestRequestSuggestionPromptWithoutExclusions(t *testing.T) {
	gen := &fakeGenerator{content: palakPaneer}
	_, err := NewRequestor(gen, Options{Mode: OutputImageKeywords}).RequestSuggestion(context.Background(), Breakfast, nil)
	require.NoError(t, err)

	assert.NotContains(t, gen.prompt, "already been suggested")
	assert.Contains(t, gen.prompt, "imageSearchKeywords")
	assert.NotContains(t, gen.prompt, "nutritionalInfo")
}

func TestRequestSuggestionServiceUnavailable(t *testing.T) {
	gen := &fakeGenerator{err: context.DeadlineExceeded}
	_, err := NewRequestor(gen, Options{}).RequestSuggestion(context.Background(), Lunch, nil)

	require.Error(t, err)
	assert.Equal(t, ServiceUnavailable, KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, gen.calls)
}

func TestRequestSuggestionInvalidTimeOfDay(t *testing.T) {
	gen := &fakeGenerator{content: palakPaneer}
	_, err := NewRequestor(gen, Options{}).RequestSuggestion(context.Background(), TimeOfDay("Brunch"), nil)

	assert.Equal(t, InvalidRequest, KindOf(err))
	assert.Zero(t, gen.calls)
}

func TestRequestSuggestionInvalidResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing dish name", `{"ingredients": ["rice"], "recipe": "1. Cook."}`},
		{"blank dish name", `{"dishName": "  ", "ingredients": ["rice"], "recipe": "1. Cook."}`},
		{"missing recipe", `{"dishName": "Khichdi", "ingredients": ["rice"]}`},
		{"blank recipe", `{"dishName": "Khichdi", "ingredients": ["rice"], "recipe": "\n \n"}`},
		{"missing ingredients", `{"dishName": "Khichdi", "recipe": "1. Cook."}`},
		{"not json", `I would suggest Khichdi today!`},
		{"broken json", `{"dishName": "Khichdi", "recipe": }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{content: tt.content}
			resp, err := NewRequestor(gen, Options{}).RequestSuggestion(context.Background(), Lunch, nil)

			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, InvalidResponse, KindOf(err))
		})
	}
}

func TestRequestSuggestionAcceptsExcludedRepeat(t *testing.T) {
	gen := &fakeGenerator{content: `{"dishName": "Dal Makhani", "recipe": "1. Soak.\n2. Cook.", "ingredients": ["urad dal"]}`}
	resp, err := NewRequestor(gen, Options{}).RequestSuggestion(context.Background(), Dinner, []string{"Dal Makhani"})

	require.NoError(t, err)
	assert.Equal(t, "Dal Makhani", resp.DishName)
}

func TestRequestSuggestionFencedOutput(t *testing.T) {
	gen := &fakeGenerator{content: "```json\n{dishName: \"Poha\", recipe: \"1. Rinse.\", ingredients: [\"poha\"]}\n```"}
	resp, err := NewRequestor(gen, Options{}).RequestSuggestion(context.Background(), Breakfast, nil)

	require.NoError(t, err)
	assert.Equal(t, "Poha", resp.DishName)
}

func TestRequestSuggestionToleratesBadEnrichment(t *testing.T) {
	gen := &fakeGenerator{content: `{"dishName": "Kadhi Pakora", "recipe": "1. Whisk curd.", "ingredients": ["besan", "curd"], "nutritionalInfo": [{"name": "Protein", "quantity": 12}], "imageSearchKeywords": ["kadhi"]}`}

	resp, err := NewRequestor(gen, Options{}).RequestSuggestion(context.Background(), Lunch, nil)
	require.NoError(t, err)
	assert.Equal(t, []Nutrient{{"Protein", "12"}}, resp.NutritionalInfo)
	assert.Equal(t, "kadhi", resp.ImageSearchKeywords)
}
