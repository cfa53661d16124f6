package trustworkflow_test

import (
	"strings"
	"testing"

	"github.com/contenox/pkgbot/trustworkflow"
	"github.com/stretchr/testify/require"
)

func TestUnit_ParseError(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{"three segments", "A: B: C", map[string]any{"A": map[string]any{"B": "C"}}},
		{"download error", "Download: Network: Timeout", map[string]any{"Download": map[string]any{"Network": "Timeout"}}},
		{"two segments", "Processor: failed", map[string]any{"Processor": "failed"}},
		{"no separator", "something broke", map[string]any{"R123": "something broke"}},
		{"colon without space", "a:b:c", map[string]any{"R123": "a:b:c"}},
		{"empty", "", map[string]any{"R123": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, trustworkflow.ParseError("R123", tt.raw))
		})
	}
}

func TestUnit_ParseError_KeyPathRoundTrip(t *testing.T) {
	for _, raw := range []string{"A: B: C", "one: two", "x: y: z: w: v"} {
		parsed := trustworkflow.ParseError("R", raw)

		var keys []string
		var node any = parsed
		for {
			m, ok := node.(map[string]any)
			if !ok {
				break
			}
			require.Len(t, m, 1)
			for k, v := range m {
				keys = append(keys, k)
				node = v
			}
		}
		parts := strings.Split(raw, ": ")
		require.Equal(t, strings.Join(parts[:len(parts)-1], ": "), strings.Join(keys, ": "))
		require.Equal(t, parts[len(parts)-1], node)
	}
}
