package corpus

import (
	"slices"
)

// TotalChapters and TotalVerses are the canonical corpus sizes.
const (
	TotalChapters = 114
	TotalVerses   = 6236
)

// versesPerChapter holds the canonical verse count of every surah, indexed by
// surah number minus one.
var versesPerChapter = [TotalChapters]int{
	7, 286, 200, 176, 120, 165, 206, 75, 129, 109, // 1-10
	123, 111, 43, 52, 99, 128, 111, 110, 98, 135, // 11-20
	112, 78, 118, 64, 77, 227, 93, 88, 69, 60, // 21-30
	34, 30, 73, 54, 45, 83, 182, 88, 75, 85, // 31-40
	54, 53, 89, 59, 37, 35, 38, 29, 18, 45, // 41-50
	60, 49, 62, 55, 78, 96, 29, 22, 24, 13, // 51-60
	14, 11, 11, 18, 12, 12, 30, 52, 52, 44, // 61-70
	28, 28, 20, 56, 40, 31, 50, 40, 46, 42, // 71-80
	29, 19, 36, 25, 22, 17, 19, 26, 30, 20, // 81-90
	15, 21, 11, 8, 8, 19, 5, 8, 8, 11, // 91-100
	11, 8, 3, 9, 5, 4, 7, 3, 6, 3, // 101-110
	5, 4, 5, 6, // 111-114
}

// ReferenceStatistics is the authoritative table collected data is checked
// against. Values are never mutated after construction; use WithChapter to
// derive a modified copy.
type ReferenceStatistics struct {
	TotalChapters int
	TotalVerses   int
	verses        map[int]int
}

// DefaultReference returns the canonical reference table.
func DefaultReference() ReferenceStatistics {
	verses := make(map[int]int, TotalChapters)
	for i, n := range versesPerChapter {
		verses[i+1] = n
	}
	return ReferenceStatistics{
		TotalChapters: TotalChapters,
		TotalVerses:   TotalVerses,
		verses:        verses,
	}
}

// NewReference builds a reference table from explicit values. The map is
// copied.
func NewReference(totalChapters, totalVerses int, perChapter map[int]int) ReferenceStatistics {
	verses := make(map[int]int, len(perChapter))
	for id, n := range perChapter {
		verses[id] = n
	}
	return ReferenceStatistics{
		TotalChapters: totalChapters,
		TotalVerses:   totalVerses,
		verses:        verses,
	}
}

// Verses returns the expected verse count for a chapter and whether the
// chapter is part of the reference.
func (r ReferenceStatistics) Verses(id int) (int, bool) {
	n, ok := r.verses[id]
	return n, ok
}

// ChapterIDs returns the reference chapter ids in ascending order.
func (r ReferenceStatistics) ChapterIDs() []int {
	ids := make([]int, 0, len(r.verses))
	for id := range r.verses {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// WithChapter returns a copy of r with the verse count of one chapter
// replaced.
func (r ReferenceStatistics) WithChapter(id, verses int) ReferenceStatistics {
	out := NewReference(r.TotalChapters, r.TotalVerses, r.verses)
	out.verses[id] = verses
	return out
}

// AllChapterIDs returns 1..TotalChapters.
func AllChapterIDs() []int {
	ids := make([]int, TotalChapters)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

// ValidChapterID reports whether id is a canonical surah number.
func ValidChapterID(id int) bool {
	return id >= 1 && id <= TotalChapters
}
