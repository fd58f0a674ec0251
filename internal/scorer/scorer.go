// Package scorer derives a sentiment score and a nightmare index from dream
// text using fixed keyword lists.
package scorer

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	wordPattern = regexp.MustCompile(`[a-z']{2,}`)
	fearPattern = regexp.MustCompile(`fear|scared|chase|doom|die|nightmare`)
)

var positive = map[string]bool{
	"happy": true, "love": true, "peace": true,
	"safe": true, "calm": true, "laugh": true,
}

var negative = map[string]bool{
	"fear": true, "afraid": true, "scared": true, "chase": true,
	"die": true, "doom": true, "cry": true,
}

// Scores holds both values computed for a piece of text
type Scores struct {
	Sentiment      float64
	NightmareIndex int
}

// Score computes the sentiment of text and the nightmare index derived from it
func Score(text string) Scores {
	s := Sentiment(text)
	return Scores{Sentiment: s, NightmareIndex: NightmareIndex(text, s)}
}

// Sentiment returns a value in [-1, 1]: positive keywords minus negative
// keywords, scaled down for texts longer than a dozen words.
func Sentiment(text string) float64 {
	words := wordPattern.FindAllString(lower(text), -1)

	score := 0
	for _, w := range words {
		if positive[w] {
			score++
		}
		if negative[w] {
			score--
		}
	}

	norm := math.Max(1, float64(len(words))/12)
	return clamp(float64(score)/norm, -1, 1)
}

// NightmareIndex returns a distress score in [0, 100] from fear keywords,
// exclamation marks and the negative part of sentiment.
func NightmareIndex(text string, sentiment float64) int {
	t := lower(text)
	fearHits := len(fearPattern.FindAllStringIndex(t, -1))
	exclam := strings.Count(t, "!")
	neg := math.Max(0, -sentiment)
	if math.IsNaN(neg) {
		neg = 0
	}

	raw := 40*neg + 10*float64(fearHits) + 5*float64(exclam)
	return int(clamp(math.Round(raw), 0, 100))
}

// lower uses a fresh Caser per call since casers keep state
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
