package corpus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultReferenceTotals(t *testing.T) {
	ref := DefaultReference()

	assert.Equal(t, 114, ref.TotalChapters)
	assert.Equal(t, 6236, ref.TotalVerses)

	ids := ref.ChapterIDs()
	require.Len(t, ids, TotalChapters)
	sum := 0
	for i, id := range ids {
		assert.Equal(t, i+1, id)
		n, ok := ref.Verses(id)
		require.True(t, ok)
		sum += n
	}
	assert.Equal(t, ref.TotalVerses, sum)

	n, _ := ref.Verses(2)
	assert.Equal(t, 286, n)
	n, _ = ref.Verses(108)
	assert.Equal(t, 3, n)
}

func TestWithChapterDoesNotMutateOriginal(t *testing.T) {
	ref := DefaultReference()
	changed := ref.WithChapter(1, 8)

	n, _ := ref.Verses(1)
	assert.Equal(t, 7, n)
	n, _ = changed.Verses(1)
	assert.Equal(t, 8, n)
}

func TestNewReferenceCopiesInput(t *testing.T) {
	in := map[int]int{1: 3, 2: 4}
	ref := NewReference(2, 7, in)
	in[1] = 100

	n, _ := ref.Verses(1)
	assert.Equal(t, 3, n)
	_, ok := ref.Verses(3)
	assert.False(t, ok)
}

func TestParseRevelationType(t *testing.T) {
	tests := []struct {
		in      string
		want    RevelationType
		wantErr bool
	}{
		{"Meccan", Meccan, false},
		{"medinan", Medinan, false},
		{" MEDINAN ", Medinan, false},
		{"Andalusian", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRevelationType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckContiguous(t *testing.T) {
	verses := func(nums ...int) []Verse {
		out := make([]Verse, len(nums))
		for i, n := range nums {
			out[i] = Verse{ChapterID: 9, Number: n}
		}
		return out
	}

	tests := []struct {
		name    string
		verses  []Verse
		wantErr bool
	}{
		{"empty", nil, false},
		{"contiguous", verses(1, 2, 3), false},
		{"gap", verses(1, 3), true},
		{"duplicate", verses(1, 1, 2), true},
		{"starts at two", verses(2, 3), true},
		{"foreign verse", []Verse{{ChapterID: 8, Number: 1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &Chapter{ID: 9, Verses: tt.verses}
			err := ch.CheckContiguous()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOutcomeConstructors(t *testing.T) {
	ch := &Chapter{ID: 3}
	ok := Success(ch, 2, nil)
	assert.True(t, ok.Succeeded())
	assert.Equal(t, 3, ok.ChapterID)

	failed := Failure(4, KindRemote, 1, errors.New("404"), nil, "quran-uthmani")
	assert.False(t, failed.Succeeded())
	assert.Equal(t, []string{"quran-uthmani"}, failed.FailedEditions)
}

func TestAllChapterIDs(t *testing.T) {
	ids := AllChapterIDs()
	require.Len(t, ids, 114)
	assert.Equal(t, 1, ids[0])
	assert.Equal(t, 114, ids[113])
	assert.True(t, ValidChapterID(114))
	assert.False(t, ValidChapterID(0))
	assert.False(t, ValidChapterID(115))
}
