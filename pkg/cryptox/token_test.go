package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantLen int
	}{
		{"128-bit token", TokenSize128, 22},
		{"256-bit token", TokenSize256, 43},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.Len(t, token, tt.wantLen)

			other, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, token, other)
		})
	}
}

func TestGenerateTokenInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := GenerateToken(size)
		require.Error(t, err)
	}
}

func TestKeyedFingerprint(t *testing.T) {
	keyA := []byte("key-a")
	keyB := []byte("key-b")

	require.Empty(t, KeyedFingerprint(keyA, ""))
	require.Equal(t, KeyedFingerprint(keyA, "10.0.0.1"), KeyedFingerprint(keyA, "10.0.0.1"))
	require.NotEqual(t, KeyedFingerprint(keyA, "10.0.0.1"), KeyedFingerprint(keyB, "10.0.0.1"))
	require.Len(t, KeyedFingerprint(keyA, "10.0.0.1"), 43)
}
