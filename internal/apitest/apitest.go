// Package apitest serves canned alquran.cloud responses for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"mushaf/internal/corpus"
)

// Sample verse texts. The marked text carries harakat and alef wasla so the
// simplified and marked variants differ after normalization.
const (
	SimpleText = "قل هو الله احد"
	MarkedText = "قُلْ هُوَ ٱللَّهُ أَحَدٌ"
)

type ayah struct {
	Number        int    `json:"number"`
	Text          string `json:"text"`
	NumberInSurah int    `json:"numberInSurah"`
	Juz           int    `json:"juz"`
	Page          int    `json:"page"`
}

type surah struct {
	Number                 int    `json:"number"`
	Name                   string `json:"name"`
	EnglishName            string `json:"englishName"`
	EnglishNameTranslation string `json:"englishNameTranslation"`
	RevelationType         string `json:"revelationType"`
	NumberOfAyahs          int    `json:"numberOfAyahs"`
	Ayahs                  []ayah `json:"ayahs"`
}

// Revelation returns the revelation type the fake API reports for id.
// Chapter 2 is Medinan so statistics have both kinds.
func Revelation(id int) string {
	if id == 2 || id%10 == 0 {
		return "Medinan"
	}
	return "Meccan"
}

// SurahBody renders a successful surah response with n verses whose global
// numbers start after offset.
func SurahBody(id, n, offset int, edition string) []byte {
	text := SimpleText
	if edition != "quran-simple" {
		text = MarkedText
	}
	s := surah{
		Number:                 id,
		Name:                   "سورة",
		EnglishName:            fmt.Sprintf("Surah-%d", id),
		EnglishNameTranslation: fmt.Sprintf("Chapter %d", id),
		RevelationType:         Revelation(id),
		NumberOfAyahs:          n,
		Ayahs:                  make([]ayah, n),
	}
	for i := range s.Ayahs {
		s.Ayahs[i] = ayah{
			Number:        offset + i + 1,
			Text:          text,
			NumberInSurah: i + 1,
			Juz:           1 + (offset+i)/208,
			Page:          1 + (offset+i)/10,
		}
	}
	return envelope(200, "OK", s)
}

// ErrorBody renders an API-level error response.
func ErrorBody(code int, msg string) []byte {
	return envelope(code, "Error", msg)
}

func envelope(code int, status string, data any) []byte {
	b, err := json.Marshal(map[string]any{"code": code, "status": status, "data": data})
	if err != nil {
		panic(err)
	}
	return b
}

// Offsets returns, per chapter, the number of reference verses before it.
func Offsets(ref corpus.ReferenceStatistics) map[int]int {
	offsets := make(map[int]int, ref.TotalChapters)
	total := 0
	for _, id := range ref.ChapterIDs() {
		offsets[id] = total
		n, _ := ref.Verses(id)
		total += n
	}
	return offsets
}

// API is an http.Handler imitating /surah/{id}/{edition}.
type API struct {
	Ref corpus.ReferenceStatistics
	// Status forces an HTTP status for a chapter.
	Status map[int]int
	// Verses overrides the served verse count for a chapter.
	Verses map[int]int

	once     sync.Once
	offsets  map[int]int
	requests atomic.Int64
}

// NewAPI serves the default reference.
func NewAPI() *API {
	return &API{Ref: corpus.DefaultReference()}
}

// Requests returns how many requests were served.
func (a *API) Requests() int64 { return a.requests.Load() }

// Body returns the response body for a chapter and edition.
func (a *API) Body(id int, edition string) ([]byte, int) {
	a.once.Do(func() { a.offsets = Offsets(a.Ref) })
	if code, ok := a.Status[id]; ok {
		return ErrorBody(code, http.StatusText(code)), code
	}
	n, ok := a.Ref.Verses(id)
	if !ok {
		return ErrorBody(404, "Surah not found"), http.StatusNotFound
	}
	if override, ok := a.Verses[id]; ok {
		n = override
	}
	return SurahBody(id, n, a.offsets[id], edition), http.StatusOK
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.requests.Add(1)
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 || parts[len(parts)-3] != "surah" {
		w.WriteHeader(http.StatusNotFound)
		w.Write(ErrorBody(404, "unknown endpoint"))
		return
	}
	id, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write(ErrorBody(400, "bad surah number"))
		return
	}
	body, code := a.Body(id, parts[len(parts)-1])
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}
