package llm

// charsPerToken approximates English prose with inline math under the
// common BPE tokenizers. Good enough for budget planning, not billing.
const charsPerToken = 3.8

// EstimateTokens approximates the token count of a text.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	n := int(float64(len(s)) / charsPerToken)
	if n < 1 {
		n = 1
	}
	return n
}

// TokenBudgetChars converts a token budget back to a character allowance.
func TokenBudgetChars(tokens int) int {
	if tokens <= 0 {
		return 0
	}
	return int(float64(tokens) * charsPerToken)
}
