package opspod

import "strings"

type TokenRates struct {
	Input  float64
	Output float64
}

// Pricing constants in dollars per million tokens.
const (
	GPT4oInputRate        = 2.5
	GPT4oOutputRate       = 10.0
	GPT4oMiniInputRate    = 0.15
	GPT4oMiniOutputRate   = 0.60
	GPT41InputRate        = 2.0
	GPT41OutputRate       = 8.0
	GPT41MiniInputRate    = 0.40
	GPT41MiniOutputRate   = 1.60
	O3MiniInputRate       = 1.10
	O3MiniOutputRate      = 4.40
	ClaudeSonnetInputRate = 3.0
	ClaudeSonnetOutput    = 15.0
	ClaudeHaikuInputRate  = 0.80
	ClaudeHaikuOutputRate = 4.0
)

// ModelPricings is a map of model names to their pricing information
var ModelPricings = map[string]TokenRates{
	"gpt-4o":                   {Input: GPT4oInputRate, Output: GPT4oOutputRate},
	"gpt-4o-mini":              {Input: GPT4oMiniInputRate, Output: GPT4oMiniOutputRate},
	"gpt-4.1":                  {Input: GPT41InputRate, Output: GPT41OutputRate},
	"gpt-4.1-mini":             {Input: GPT41MiniInputRate, Output: GPT41MiniOutputRate},
	"o3-mini":                  {Input: O3MiniInputRate, Output: O3MiniOutputRate},
	"claude-3-5-sonnet-latest": {Input: ClaudeSonnetInputRate, Output: ClaudeSonnetOutput},
	"claude-3-7-sonnet-latest": {Input: ClaudeSonnetInputRate, Output: ClaudeSonnetOutput},
	"claude-sonnet-4-20250514": {Input: ClaudeSonnetInputRate, Output: ClaudeSonnetOutput},
	"claude-3-5-haiku-latest":  {Input: ClaudeHaikuInputRate, Output: ClaudeHaikuOutputRate},
}

// LookupPricing finds the rates of a model. Provider prefixes such as
// "azure/" are ignored.
func LookupPricing(model string) (TokenRates, bool) {
	if rates, ok := ModelPricings[model]; ok {
		return rates, true
	}
	if i := strings.LastIndex(model, "/"); i >= 0 {
		rates, ok := ModelPricings[model[i+1:]]
		return rates, ok
	}
	return TokenRates{}, false
}

// CostDetails represents detailed cost information for a session
type CostDetails struct {
	InputTokens  int64
	OutputTokens int64
	TotalCost    float64
}

// CostOf prices a usage record for the given model.
func CostOf(model string, usage Usage) (*CostDetails, bool) {
	pricing, exists := LookupPricing(model)
	if !exists {
		return nil, false
	}
	inputCost := float64(usage.InputTokens) * pricing.Input / 1000000
	outputCost := float64(usage.OutputTokens) * pricing.Output / 1000000
	return &CostDetails{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalCost:    inputCost + outputCost,
	}, true
}

// Cost returns the accumulated cost of the session.
func (s *Session) Cost() (*CostDetails, bool) {
	s.mu.Lock()
	usage := s.usage
	s.mu.Unlock()
	return CostOf(s.model, usage)
}
