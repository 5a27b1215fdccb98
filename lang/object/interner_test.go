package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashStringIsFNV1a(t *testing.T) {
	require.Equal(t, uint32(2166136261), HashString(""))
	require.Equal(t, HashString("abc"), HashString("abc"))
	require.NotEqual(t, HashString("abc"), HashString("abd"))
}

func TestNewStringObjectCachesHash(t *testing.T) {
	s := NewStringObject("quixil")
	require.Equal(t, HashString("quixil"), s.hash)
	require.Equal(t, 6, s.Len())
	require.Equal(t, "quixil", s.String())
}
