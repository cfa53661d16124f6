package libredact_test

import (
	"sync"
	"testing"

	"github.com/contenox/pkgbot/libredact"
	"github.com/stretchr/testify/require"
)

func TestUnit_Redact(t *testing.T) {
	r := libredact.New("s3cret", "", "jamf-admin", "a.b*c")

	tests := []struct {
		name  string
		in    string
		extra []string
		want  string
	}{
		{"secret", "password is s3cret", nil, "password is <redacted>"},
		{"repeated", "s3cret:s3cret", nil, "<redacted>:<redacted>"},
		{"regex metacharacters are literal", "key a.b*c and axbbc", nil, "key <redacted> and axbbc"},
		{"bearer", "Authorization: Bearer eyJ.abc-12+3", nil, "Authorization: <redacted>"},
		{"bearer lowercase", "header bearer tok_en", nil, "header <redacted>"},
		{"extra", "user jamf-admin uploaded pkg for acme", []string{"acme"}, "user <redacted> uploaded pkg for <redacted>"},
		{"untouched", "nothing to hide", nil, "nothing to hide"},
		{"empty", "", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, r.Redact(tt.in, tt.extra...))
		})
	}
}

func TestUnit_Redact_NoSecrets(t *testing.T) {
	r := libredact.New()
	require.Equal(t, "token <redacted>", r.Redact("token bearer abc"))

	var nilRedactor *libredact.Redactor
	require.Equal(t, "plain", nilRedactor.Redact("plain"))
}

func TestUnit_SplitList(t *testing.T) {
	require.Equal(t, []string{"a", "b c"}, libredact.SplitList(" a, ,b c,"))
	require.Nil(t, libredact.SplitList(""))
}

func TestUnit_Redact_Concurrent(t *testing.T) {
	r := libredact.New("pw")
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.Equal(t, "<redacted>", r.Redact("pw"))
		}()
	}
	wg.Wait()
}
