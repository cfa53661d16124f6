package librunner_test

import (
	"context"
	"testing"
	"time"

	"github.com/contenox/pkgbot/librunner"
	"github.com/stretchr/testify/require"
)

func TestUnit_RunShell_Success(t *testing.T) {
	res, err := librunner.RunShell(context.Background(), "echo '  hello  '", "")
	require.NoError(t, err)
	require.Equal(t, "hello", res.Stdout)
	require.Empty(t, res.Stderr)
	require.Equal(t, 0, res.Status)
	require.True(t, res.Success)
}

func TestUnit_RunShell_NonZeroExit(t *testing.T) {
	res, err := librunner.RunShell(context.Background(), "echo oops >&2; exit 3", "")
	require.NoError(t, err)
	require.Equal(t, "oops", res.Stderr)
	require.Equal(t, 3, res.Status)
	require.False(t, res.Success)
}

func TestUnit_RunShell_Input(t *testing.T) {
	res, err := librunner.RunShell(context.Background(), "tr a-z A-Z", "pkgbot\n")
	require.NoError(t, err)
	require.Equal(t, "PKGBOT", res.Stdout)
}

func TestUnit_RunShell_EmptyCommand(t *testing.T) {
	_, err := librunner.RunShell(context.Background(), "  ", "")
	require.ErrorIs(t, err, librunner.ErrEmptyCommand)
}

func TestUnit_RunShell_Canceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := librunner.RunShell(ctx, "sleep 5", "")
	require.Error(t, err)
}

func TestUnit_Quote(t *testing.T) {
	tests := map[string]string{
		"":                  "''",
		"simple":            "'simple'",
		"local.pkg.Firefox": "'local.pkg.Firefox'",
		"it's":              `'it'"'"'s'`,
		"$(rm -rf /); echo": "'$(rm -rf /); echo'",
	}
	for in, want := range tests {
		require.Equal(t, want, librunner.Quote(in))
	}
}

func TestUnit_Quote_RoundTripsThroughShell(t *testing.T) {
	arg := `it's "quoted" $HOME`
	res, err := librunner.RunShell(context.Background(), "printf %s "+librunner.Quote(arg), "")
	require.NoError(t, err)
	require.Equal(t, arg, res.Stdout)
}

func TestUnit_Join(t *testing.T) {
	require.Equal(t, "'--action' 'trust'", librunner.Join("--action", "trust"))
}
