package credentials

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	p := Static{Passwords: map[string]string{"admin": "secret"}}

	pw, err := p.Password("admin")
	require.NoError(t, err)
	require.Equal(t, "secret", pw)

	_, err = p.Password("oracle-price-feeder")
	require.Error(t, err)

	p.Default = "fallback"
	pw, err = p.Password("oracle-price-feeder")
	require.NoError(t, err)
	require.Equal(t, "fallback", pw)
}

func TestProviderFunc(t *testing.T) {
	calls := 0
	p := ProviderFunc(func(account string) (string, error) {
		calls++
		return account + "-pw", nil
	})

	pw, err := p.Password("admin")
	require.NoError(t, err)
	require.Equal(t, "admin-pw", pw)
	require.Equal(t, 1, calls)
}

// writeInput returns a file holding content, standing in for piped stdin.
func writeInput(t *testing.T, content string) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stdin")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestTerminalPiped(t *testing.T) {
	var out bytes.Buffer
	term := &Terminal{In: writeInput(t, "first\r\nsecond\nlast"), Out: &out}

	for _, want := range []string{"first", "second", "last"} {
		pw, err := term.Password("admin")
		require.NoError(t, err)
		require.Equal(t, want, pw)
	}
	require.Contains(t, out.String(), "Please enter a password for the account=admin")

	_, err := term.Password("admin")
	require.Error(t, err)
}

func TestTerminalEmptyPassword(t *testing.T) {
	term := &Terminal{In: writeInput(t, "\n"), Out: &bytes.Buffer{}}

	_, err := term.Password("admin")
	require.ErrorIs(t, err, ErrEmptyPassword)
}
