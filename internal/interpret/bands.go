package interpret

import (
	"encoding/json"
	"regexp"
	"strconv"
)

// Rubric titles as the evaluation prompt asks the model to write them.
const (
	TitleTask      = "Task"
	TitleCoherence = "Coherence and Cohesion"
	TitleLexical   = "Lexical Resource"
	TitleGrammar   = "Grammatical Range and Accuracy"
	TitleOverall   = "Overall Band Score"
)

// Bands holds the five rubric scores. A nil field means the score was not found.
type Bands struct {
	Task      *float64 `json:"task"`
	Coherence *float64 `json:"coherence"`
	Lexical   *float64 `json:"lexical"`
	Grammar   *float64 `json:"grammar"`
	Overall   *float64 `json:"overall"`
}

func bandPattern(title string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(title) + ` \(Band ([0-9.]+)\)`)
}

var bandPatterns = map[string]*regexp.Regexp{
	TitleTask:      bandPattern(TitleTask),
	TitleCoherence: bandPattern(TitleCoherence),
	TitleLexical:   bandPattern(TitleLexical),
	TitleGrammar:   bandPattern(TitleGrammar),
	TitleOverall:   bandPattern(TitleOverall),
}

// ExtractBand finds the first "<title> (Band <number>)" in text.
func ExtractBand(text, title string) *float64 {
	re, ok := bandPatterns[title]
	if !ok {
		re = bandPattern(title)
	}
	match := re.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	return &value
}

var scoresBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractBands prefers a fenced JSON score block and falls back to the
// "<title> (Band n)" pattern for every score the block does not carry.
func ExtractBands(text string) Bands {
	bands := structuredBands(text)
	fill := func(dst **float64, title string) {
		if *dst == nil {
			*dst = ExtractBand(text, title)
		}
	}
	fill(&bands.Task, TitleTask)
	fill(&bands.Coherence, TitleCoherence)
	fill(&bands.Lexical, TitleLexical)
	fill(&bands.Grammar, TitleGrammar)
	fill(&bands.Overall, TitleOverall)
	return bands
}

func structuredBands(text string) Bands {
	matches := scoresBlockRe.FindAllStringSubmatch(text, -1)
	// the score block closes the evaluation, so the last candidate wins
	for i := len(matches) - 1; i >= 0; i-- {
		var bands Bands
		if err := json.Unmarshal([]byte(matches[i][1]), &bands); err != nil {
			continue
		}
		if bands != (Bands{}) {
			return bands
		}
	}
	return Bands{}
}
