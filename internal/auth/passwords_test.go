package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchemeByName(t *testing.T) {
	for _, name := range []string{"", "plain", "bcrypt"} {
		scheme, err := SchemeByName(name)
		require.NoError(t, err, name)
		require.NotNil(t, scheme)
	}
	_, err := SchemeByName("md5")
	require.Error(t, err)
}

func TestPlainScheme(t *testing.T) {
	stored, err := PlainScheme{}.Hash("secret")
	require.NoError(t, err)
	require.True(t, PlainScheme{}.Verify(stored, "secret"))
	require.False(t, PlainScheme{}.Verify(stored, "Secret"))
}

func TestBcryptScheme(t *testing.T) {
	scheme := BcryptScheme{Cost: 4}
	stored, err := scheme.Hash("secret")
	require.NoError(t, err)
	require.NotEqual(t, "secret", stored)
	require.True(t, scheme.Verify(stored, "secret"))
	require.False(t, scheme.Verify(stored, "wrong"))
	require.False(t, scheme.Verify("garbage", "secret"))
}
