package security

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashToken_Deterministic(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("token-value"))
	want := base64.RawURLEncoding.EncodeToString(sum[:])

	require.Equal(t, want, HashToken("token-value"))
	require.Equal(t, HashToken("token-value"), HashToken("token-value"))
	require.NotEqual(t, HashToken("token-value"), HashToken("other-token"))
}

func TestTokenHashEqual(t *testing.T) {
	t.Parallel()

	stored := HashToken("token-value")

	require.True(t, TokenHashEqual("token-value", stored))
	require.False(t, TokenHashEqual("other-token", stored))
	require.False(t, TokenHashEqual("token-value", "garbage"))
}
