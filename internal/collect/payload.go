package collect

import (
	"encoding/json"
	"fmt"
	"strings"

	"mushaf/internal/corpus"
	"mushaf/internal/normalize"
)

// envelope is the wrapper every alquran.cloud response uses. On errors the
// data field holds a message string instead of an object.
type envelope struct {
	Code   int             `json:"code"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// surahPayload is the data object of /surah/{n}/{edition}.
type surahPayload struct {
	Number                 int           `json:"number"`
	Name                   string        `json:"name"`
	EnglishName            string        `json:"englishName"`
	EnglishNameTranslation string        `json:"englishNameTranslation"`
	RevelationType         string        `json:"revelationType"`
	NumberOfAyahs          int           `json:"numberOfAyahs"`
	Ayahs                  []ayahPayload `json:"ayahs"`
}

type ayahPayload struct {
	Number        int    `json:"number"`
	Text          string `json:"text"`
	NumberInSurah int    `json:"numberInSurah"`
	Juz           int    `json:"juz"`
	Page          int    `json:"page"`
}

// decodeSurah parses an API body and checks it describes chapter id.
func decodeSurah(body []byte, id int) (*surahPayload, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decoding envelope: %v", corpus.ErrMalformed, err)
	}
	if env.Code != 200 {
		var msg string
		if json.Unmarshal(env.Data, &msg) != nil {
			msg = env.Status
		}
		return nil, fmt.Errorf("%w: API code %d: %s", corpus.ErrMalformed, env.Code, msg)
	}

	var s surahPayload
	if err := json.Unmarshal(env.Data, &s); err != nil {
		return nil, fmt.Errorf("%w: decoding surah: %v", corpus.ErrMalformed, err)
	}
	if s.Number != id {
		return nil, fmt.Errorf("%w: asked for surah %d, got %d", corpus.ErrMalformed, id, s.Number)
	}
	if len(s.Ayahs) == 0 {
		return nil, fmt.Errorf("%w: surah %d has no ayahs", corpus.ErrMalformed, id)
	}
	return &s, nil
}

// buildChapter merges the simplified and marked editions of one surah into a
// normalized chapter. Both editions must number their verses identically.
func buildChapter(simple, marked *surahPayload) (*corpus.Chapter, error) {
	if len(simple.Ayahs) != len(marked.Ayahs) {
		return nil, fmt.Errorf("%w: surah %d has %d simplified and %d marked verses",
			corpus.ErrMalformed, simple.Number, len(simple.Ayahs), len(marked.Ayahs))
	}

	revelation, err := corpus.ParseRevelationType(simple.RevelationType)
	if err != nil {
		return nil, err
	}

	ch := &corpus.Chapter{
		ID:                 simple.Number,
		NameArabic:         strings.TrimSpace(simple.Name),
		NameEnglish:        simple.EnglishName,
		NameTranslation:    simple.EnglishNameTranslation,
		Revelation:         revelation,
		DeclaredVerseCount: simple.NumberOfAyahs,
		Verses:             make([]corpus.Verse, 0, len(simple.Ayahs)),
	}

	for i, a := range simple.Ayahs {
		m := marked.Ayahs[i]
		if m.NumberInSurah != a.NumberInSurah {
			return nil, fmt.Errorf("%w: surah %d verse %d has no marked counterpart (found %d)",
				corpus.ErrMalformed, ch.ID, a.NumberInSurah, m.NumberInSurah)
		}
		ch.Verses = append(ch.Verses, corpus.Verse{
			ChapterID:  ch.ID,
			Number:     a.NumberInSurah,
			Global:     a.Number,
			Juz:        a.Juz,
			Page:       a.Page,
			Raw:        a.Text,
			Simplified: normalize.Text(a.Text, normalize.ModeSimplified),
			Marked:     normalize.Text(m.Text, normalize.ModePreserveMarks),
		})
	}

	if err := ch.CheckContiguous(); err != nil {
		return nil, err
	}
	return ch, nil
}
