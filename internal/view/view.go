// Package view turns stored entries into display records.
package view

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"math/big"
	"strings"

	"github.com/pbaille/dreams/internal/domain"
)

// Card is the displayed form of an entry. Text and tags are not shown.
type Card struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	DT    string `json:"dt"`
	NI    int    `json:"ni"`
	Sent  string `json:"sent"`
}

// NewCard builds the card for e
func NewCard(e domain.Entry) Card {
	return Card{
		ID:    e.ID,
		Title: e.Title,
		DT:    e.DT,
		NI:    e.NI,
		Sent:  FormatSentiment(e.Sent),
	}
}

// Cards converts entries keeping their order
func Cards(entries []domain.Entry) []Card {
	cards := make([]Card, len(entries))
	for i, e := range entries {
		cards[i] = NewCard(e)
	}
	return cards
}

// FormatSentiment renders s with two decimals. Rounding works on the exact
// binary value and ties go to the larger magnitude; the sign is kept for any
// value below zero, so -0.001 prints as -0.00 while -0 prints as 0.00.
func FormatSentiment(s float64) string {
	if math.IsNaN(s) {
		return "NaN"
	}
	if math.IsInf(s, 1) {
		return "Infinity"
	}
	if math.IsInf(s, -1) {
		return "-Infinity"
	}

	sign := ""
	if s < 0 {
		sign = "-"
	}

	// float64 * 100 needs at most 60 mantissa bits, so 128 is exact
	scaled := new(big.Float).SetPrec(128).SetFloat64(math.Abs(s))
	scaled.Mul(scaled, big.NewFloat(100))

	n, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(128).Sub(scaled, new(big.Float).SetInt(n))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	whole, cents := new(big.Int).QuoRem(n, big.NewInt(100), new(big.Int))
	return fmt.Sprintf("%s%s.%02d", sign, whole, cents.Int64())
}

// RenderText writes one line per card
func RenderText(w io.Writer, cards []Card) error {
	if len(cards) == 0 {
		_, err := fmt.Fprintln(w, "No entries yet. Use 'dreams add' to record one.")
		return err
	}

	for _, c := range cards {
		_, err := fmt.Fprintf(w, "%d  %s  %s  (nightmare %d, sentiment %s)\n",
			c.ID, c.DT, truncate(c.Title, 40), c.NI, c.Sent)
		if err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

//go:embed page.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("page").Parse(pageSource))

// Page is the data behind the single-page journal
type Page struct {
	Theme domain.Theme
	Cards []Card
	Error string
}

// RenderPage writes the HTML journal page
func RenderPage(w io.Writer, p Page) error {
	if p.Theme == "" {
		p.Theme = domain.Day
	}
	return pageTemplate.Execute(w, p)
}
