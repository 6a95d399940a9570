// Package pricing holds the static cost table for generation backends.
// Figures are USD; token rates are per single token.
package pricing

type tokenRate struct {
	input  float64
	output float64
}

var textRates = map[string]tokenRate{
	"gpt-3.5-turbo": {input: 0.0005 / 1000, output: 0.0015 / 1000},
	"gpt-4":         {input: 0.03 / 1000, output: 0.06 / 1000},
	// Gemini flash pricing is close enough to flat for cost-cap purposes.
	"gemini-1.5-flash": {input: 0.000075 / 1000, output: 0.0003 / 1000},
}

var imageRates = map[string]map[string]float64{
	"dall-e-3": {
		"1024x1024": 0.040,
		"1024x1792": 0.080,
		"1792x1024": 0.080,
	},
}

// DefaultImageCost applies when a model or size is missing from the table.
const DefaultImageCost = 0.04

// TextCost returns the estimated cost of a text generation from its token
// usage. Unknown models cost zero, matching the upstream billing behavior of
// not charging for models we cannot price.
func TextCost(model string, promptTokens, completionTokens int) float64 {
	rate, ok := textRates[model]
	if !ok {
		return 0
	}
	return float64(promptTokens)*rate.input + float64(completionTokens)*rate.output
}

// ImageCost returns the flat per-image cost for a model and size.
func ImageCost(model, size string) float64 {
	sizes, ok := imageRates[model]
	if !ok {
		return DefaultImageCost
	}
	if cost, ok := sizes[size]; ok {
		return cost
	}
	return DefaultImageCost
}
