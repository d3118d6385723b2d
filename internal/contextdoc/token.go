package contextdoc

import "unicode/utf8"

// Estimator converts text into an approximate token count. Estimators must
// be pure: same input, same output, no external calls.
type Estimator func(text string) int

// EstimateTokensV1 is the default estimator: ceil(runes / 4). It tracks the
// common ~4 characters per token rule of thumb and uses rune count so
// multi-byte text is not over-counted. Exact compatibility with any
// particular model tokenizer is explicitly not a goal.
func EstimateTokensV1(text string) int {
	if text == "" {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	return (runes + 3) / 4
}
