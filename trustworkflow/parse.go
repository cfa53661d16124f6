package trustworkflow

import "strings"

const errorSeparator = ": "

// ParseError turns "A: B: C" into {A: {B: C}}. Input without a separator,
// or empty input, becomes {recipeID: raw}.
func ParseError(recipeID, raw string) map[string]any {
	parts := strings.Split(raw, errorSeparator)
	if raw == "" || len(parts) < 2 {
		return map[string]any{recipeID: raw}
	}
	var acc any = parts[len(parts)-1]
	for i := len(parts) - 2; i >= 0; i-- {
		acc = map[string]any{parts[i]: acc}
	}
	return acc.(map[string]any)
}
