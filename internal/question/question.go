package question

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// AnswerUnit is one step of a multi-step answer: the correct fragment plus
// the choice pool presented to the answering player.
type AnswerUnit struct {
	Fragment string   `json:"char"`
	Choices  []string `json:"choices"`
}

type Question struct {
	ID    string       `json:"id"`
	Text  string       `json:"text"`
	Units []AnswerUnit `json:"answer_data"`
}

// Answer assembles the full answer string from the unit fragments.
func (q Question) Answer() string {
	var b strings.Builder
	for _, u := range q.Units {
		b.WriteString(u.Fragment)
	}
	return b.String()
}

// Load reads the question bank once at startup. Any failure here is fatal
// for the caller: the server must not accept rooms without valid questions.
func Load(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	var qs []Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("parse question bank %s: %w", path, err)
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("question bank %s is empty", path)
	}
	for i, q := range qs {
		if len(q.Units) == 0 {
			return nil, fmt.Errorf("question %d (%q) has no answer units", i, q.ID)
		}
	}
	return qs, nil
}

// ShuffleOrder returns a fresh uniform permutation of [0, n).
func ShuffleOrder(n int) []int {
	return rand.Perm(n)
}

// Matches compares a submitted fragment against the unit's correct fragment,
// ignoring case, surrounding whitespace and combining marks.
func (u AnswerUnit) Matches(submitted string) bool {
	return normalize(submitted) == normalize(u.Fragment)
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}
