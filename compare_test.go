package ctph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Compare scores below are pinned against the canonical ssdeep similarity
// algorithm, including its common-substring gate: two digests sharing no
// 7-byte rolling-hash collision score 0 regardless of edit distance.
func TestCompareAgainstReference(t *testing.T) {
	tests := []struct {
		name  string
		h1    string
		h2    string
		score int
	}{
		{"identical", "3:FJKKIUKact:FHIGi", "3:FJKKIUKact:FHIGi", 100},
		{"single_char_inserted_breaks_common_substring", "3:FJKKIUKact:FHIGi", "3:FJKKIrKact:FHIrGi", 0},
		// Both S1 fields are 64 characters - the saturation cap - and differ
		// from each other, so the equal-block-size branch must score both
		// fields separately. The S2 fields are close enough to gate open and
		// score higher on their own (93) than the saturated S1 fields do on
		// theirs (85): plain max(score1, score2) would already pick the S2
		// score here, so this case alone would not prove the saturated-field
		// tie-break fires; see "saturated_first_field_tie_break_wins_over_s1"
		// below for a case where the two paths disagree.
		{"saturated_first_field_close_s2_agrees_with_tie_break",
			"64:mnU9yDA5+fs1K7YxWXEtizwpuPcl6rIhGH0dSjgZe/MVqb4R23kNCTQJOv8FaLoB:0dSjgZe/MVqb4R23kNCTQJOv8FaLoBmn",
			"64:mnU9yDA5+fsCX7Y+jkRtizw27ccy6rIhGH0dSwgZe/ZV3bFe23xNCTdJb88SaLoB:0dSjgZe/MVqi4R23kNJTQJVv8MaSoBmn",
			93},
		// Same saturated S1 pair, but the S2 fields now differ enough that
		// their own score (80) is lower than the S1 pair's score (85).
		// Plain max(score1, score2) would return 85; the saturated-field
		// tie-break instead returns the S2 score, 80, because a truncated S1
		// field is not trustworthy evidence of similarity even when its own
		// edit distance looks good.
		{"saturated_first_field_tie_break_wins_over_s1",
			"64:mnU9yDA5+fs1K7YxWXEtizwpuPcl6rIhGH0dSjgZe/MVqb4R23kNCTQJOv8FaLoB:0dSjgZe/MVqb4R23kNCTQJOv8FaLoBmn",
			"64:mnU9yDA5+fsCX7Y+jkRtizw27ccy6rIhGH0dSwgZe/ZV3bFe23xNCTdJb88SaLoB:0dSjgZe/MV1m4cBCvNNTbJZv8QaWzMmn",
			80},
		{"no_shared_7gram_short_strings", "3:FJKKIUKact:FHIGi", "3:AXA:B", 0},
		{"block_size_ratio_one_to_two", "12:hAnzB9Wp8+3vE+vP:hAnzhWp8jvE+vP", "24:hAnzhWp8jvE+vP:hAnzhWp8jvE+vP", 100},
		{"near_identical_large_block_size",
			"49152:5AM11NN999r//99tt55JJtt0JCh9ZtB5FJB1BXh9ZtB5FJB1EpNajPZtLJXJvJ7x:PWDwVRXqpl5P0ncpK5WKFfwvSAvUl",
			"49152:SAM11NN999r//99tt55JJtt0JCh9ZtB5FJB1BXh9ZtB5FJB1EpNajPZtLJXJvJ7n:SWDwVRXqpl5P0ncpK5WKFfwvSAvUb",
			99},
		{"equal_block_size_exact_match", "3:AAA:BBB", "3:AAA:BBB", 100},
		{"incompatible_block_size", "3:AAA:BBB", "7:AAA:BBB", 0},
		{"cross_pairing_no_common_substring", "6:XYZ:abc", "3:abc:qrs", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			score, err := Compare(tc.h1, tc.h2)
			require.NoError(t, err)
			require.Equal(t, tc.score, score)
		})
	}
}

func TestCompareDerivedFromHash(t *testing.T) {
	fox, err := HashBytes([]byte("The quick brown fox jumps over the lazy dog"))
	require.NoError(t, err)
	foxBang, err := HashBytes([]byte("The quick brown fox jumps over the lazy dog!"))
	require.NoError(t, err)
	different, err := HashBytes([]byte("A completely different string that should have no similarity"))
	require.NoError(t, err)

	score, err := Compare(fox, fox)
	require.NoError(t, err)
	require.Equal(t, 100, score)

	score, err = Compare(fox, foxBang)
	require.NoError(t, err)
	require.Equal(t, 10, score)

	score, err = Compare(fox, different)
	require.NoError(t, err)
	require.Equal(t, 0, score)
}

func TestCompareOneByteFlipStaysHighlySimilar(t *testing.T) {
	data := genBytes(1024)
	flipped := append([]byte(nil), data...)
	flipped[500] ^= 0xFF

	h1, err := HashBytes(data)
	require.NoError(t, err)
	h2, err := HashBytes(flipped)
	require.NoError(t, err)
	require.Equal(t, "24:/ai6GayP6yPqSSrLyXHariib2aGyXS/PSL2yLyPSrGqWfiyi2/ai6GayP6yPqSSX:i3X3L7rL3rLbrrXrLHLnrnrbr3X3L7rD", h2)

	score, err := Compare(h1, h2)
	require.NoError(t, err)
	require.Equal(t, 100, score)
}

func TestCompareDifferentBlockSizeNoRatio(t *testing.T) {
	h1024, err := HashBytes(genBytes(1024))
	require.NoError(t, err)
	h10240, err := HashBytes(genBytes(10240))
	require.NoError(t, err)

	score, err := Compare(h1024, h10240)
	require.NoError(t, err)
	require.Equal(t, 0, score)
}

func TestCompareSymmetry(t *testing.T) {
	h1, err := HashBytes([]byte("The quick brown fox jumps over the lazy dog"))
	require.NoError(t, err)
	h2, err := HashBytes([]byte("The quick brown fox jumps over the lazy dog!"))
	require.NoError(t, err)

	ab, err := Compare(h1, h2)
	require.NoError(t, err)
	ba, err := Compare(h2, h1)
	require.NoError(t, err)
	require.Equal(t, ab, ba)
}

func TestCompareInvalidDigestFormat(t *testing.T) {
	_, err := Compare("not-a-digest", "3:AAA:BBB")
	require.ErrorIs(t, err, ErrInvalidDigestFormat)

	_, err = Compare("3:AAA:BBB", "three:AAA:BBB")
	require.ErrorIs(t, err, ErrInvalidDigestFormat)

	_, err = Compare("3:AAA:BBB:extra", "3:AAA:BBB")
	require.ErrorIs(t, err, ErrInvalidDigestFormat)
}

func TestCommonSubstringGate(t *testing.T) {
	require.True(t, commonSubstring("abcdefgh", "xxabcdefghxx"))
	require.False(t, commonSubstring("abcdefg", "hijklmn"))
	require.False(t, commonSubstring("short", "alsoshort"))
}

func TestLevenshtein(t *testing.T) {
	require.Equal(t, 0, levenshtein("same", "same"))
	require.Equal(t, 3, levenshtein("kitten", "sitting"))
	require.Equal(t, 5, levenshtein("", "hello"))
	require.Equal(t, 5, levenshtein("hello", ""))
}
