package domain

// DateLayout is the minute-precision ISO-8601 layout used for Entry.DT
const DateLayout = "2006-01-02T15:04"

// DefaultTitle replaces a blank title
const DefaultTitle = "Untitled"

// Entry represents a recorded dream
type Entry struct {
	ID    int64   `json:"id"`
	DT    string  `json:"dt"`
	Title string  `json:"title"`
	Text  string  `json:"text"`
	Tags  string  `json:"tags"`
	Sent  float64 `json:"sent"`
	NI    int     `json:"ni"`
}

// Draft is an entry that has not been stored yet
type Draft struct {
	DT    string  `json:"dt"`
	Title string  `json:"title"`
	Text  string  `json:"text"`
	Tags  string  `json:"tags"`
	Sent  float64 `json:"sent"`
	NI    int     `json:"ni"`
}

// WithID attaches a store-assigned id to the draft
func (d Draft) WithID(id int64) Entry {
	return Entry{
		ID:    id,
		DT:    d.DT,
		Title: d.Title,
		Text:  d.Text,
		Tags:  d.Tags,
		Sent:  d.Sent,
		NI:    d.NI,
	}
}

// Theme is the visual mode of the journal
type Theme string

const (
	Day   Theme = "day"
	Night Theme = "night"
)

// ParseTheme returns the theme named by s
func ParseTheme(s string) (Theme, bool) {
	switch Theme(s) {
	case Day, Night:
		return Theme(s), true
	}
	return "", false
}
