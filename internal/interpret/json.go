package interpret

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	openFenceRe  = regexp.MustCompile("^```[a-z]*\n?")
	closeFenceRe = regexp.MustCompile("\n?```$")
)

// StripCodeFences removes a markdown fence wrapped around the whole text.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = openFenceRe.ReplaceAllString(s, "")
		s = closeFenceRe.ReplaceAllString(s, "")
	}
	return s
}

// DecodeJSON strips fences from raw and unmarshals the rest into v.
func DecodeJSON(raw string, v interface{}) error {
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), v); err != nil {
		return errors.Wrap(err, "Failed to decode model json")
	}
	return nil
}

type Correction struct {
	HighlightedText string `json:"highlighted_text"`
	CorrectedText   string `json:"corrected_text"`
}

func CorrectionFallback(essay string) Correction {
	return Correction{
		HighlightedText: "<pre>" + essay + "</pre>",
		CorrectedText:   essay,
	}
}

var errEmptyCorrection = errors.New("model returned no corrected text")

// ParseCorrection decodes a correction payload. On error the returned value is
// the fallback for essay, so callers can always use it.
func ParseCorrection(raw, essay string) (Correction, error) {
	var c Correction
	if err := DecodeJSON(raw, &c); err != nil {
		return CorrectionFallback(essay), err
	}
	if c.CorrectedText == "" {
		return CorrectionFallback(essay), errEmptyCorrection
	}
	return c, nil
}

// Count is a non-negative tally. Models sometimes write counts as 12.0, so
// any JSON number is accepted and rounded.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return errors.Errorf("count %s out of range", data)
	}
	*c = Count(math.Round(f))
	return nil
}

type WordCount struct {
	Word  string `json:"word"`
	Count Count  `json:"count"`
}

type VocabLevels struct {
	A1 Count `json:"A1"`
	A2 Count `json:"A2"`
	B1 Count `json:"B1"`
	B2 Count `json:"B2"`
	C1 Count `json:"C1"`
	C2 Count `json:"C2"`
}

type Analysis struct {
	WordCount           Count       `json:"word_count"`
	GrammarMistakeCount Count       `json:"grammar_mistake_count"`
	VocabRepetition     []WordCount `json:"vocab_repetition"`
	VocabLevels         VocabLevels `json:"vocab_levels"`
}

func AnalysisFallback() Analysis {
	return Analysis{VocabRepetition: []WordCount{}}
}

// ParseAnalysis decodes the statistics payload, returning the zeroed fallback
// together with the error when raw is not valid.
func ParseAnalysis(raw string) (Analysis, error) {
	var a Analysis
	if err := DecodeJSON(raw, &a); err != nil {
		return AnalysisFallback(), err
	}
	if a.VocabRepetition == nil {
		a.VocabRepetition = []WordCount{}
	}
	return a, nil
}
