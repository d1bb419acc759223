package taskspec

// aliases maps deprecated object codes to their current code. No canonical
// code may itself appear as a key, which keeps ResolveAlias idempotent.
var aliases = map[string]string{
	"V20": "R20",
}

// ResolveAlias returns the canonical code for a raw object token. Unknown
// tokens are returned unchanged.
func ResolveAlias(token string) string {
	if canonical, ok := aliases[token]; ok {
		return canonical
	}
	return token
}

func resolveAll(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = ResolveAlias(t)
	}
	return out
}
