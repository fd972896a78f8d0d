package ctph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDigest(t *testing.T) {
	d, err := ParseDigest("192:abc:def")
	require.NoError(t, err)
	require.Equal(t, Digest{BlockSize: 192, S1: "abc", S2: "def"}, d)
	require.Equal(t, "192:abc:def", d.String())
}

func TestParseDigestEmptyFields(t *testing.T) {
	d, err := ParseDigest("3::")
	require.NoError(t, err)
	require.Equal(t, Digest{BlockSize: 3, S1: "", S2: ""}, d)
}

func TestParseDigestMalformed(t *testing.T) {
	cases := []string{
		"",
		"noColons",
		"3:onlyOneColon",
		"3:a:b:c",
		"notanumber:a:b",
	}
	for _, c := range cases {
		_, err := ParseDigest(c)
		require.ErrorIs(t, err, ErrInvalidDigestFormat, "input %q", c)
	}
}

func TestStripRuns(t *testing.T) {
	// First 3 characters are always kept even when they form a run - this
	// asymmetry is intentional.
	require.Equal(t, "aaa", stripRuns("aaa"))
	require.Equal(t, "aaa", stripRuns("aaaa"))
	require.Equal(t, "aaab", stripRuns("aaaab"))
	require.Equal(t, "abcdefg", stripRuns("abcdefg"))
	require.Equal(t, "", stripRuns(""))
	require.Equal(t, "ab", stripRuns("ab"))
}
