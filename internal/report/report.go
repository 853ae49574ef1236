package report

import (
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/Brownie44l1/skin-api/internal/knowledge"
)

var ErrLengthMismatch = errors.New("label and probability counts differ")

// Sentinel labels are not diagnoses and never get symptom or education
// sections.
var sentinels = map[string]struct{}{
	"Non-Skin":    {},
	"Normal Skin": {},
	"Unknown":     {},
}

func IsSentinel(label string) bool {
	_, ok := sentinels[label]
	return ok
}

type Mode string

const (
	ModeFull    Mode = "full"
	ModeMinimal Mode = "minimal"
)

type Score struct {
	Index       int     `json:"index"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Section is a rendered bullet list. Items is never nil.
type Section struct {
	Items []knowledge.Bullet `json:"items"`
	HTML  template.HTML      `json:"-"`
}

type Report struct {
	Label          string   `json:"label"`
	Confidence     float64  `json:"confidence"`
	ConfidenceText string   `json:"confidence_text"`
	Mode           Mode     `json:"mode"`
	Explanation    string   `json:"explanation"`
	Symptoms       *Section `json:"symptoms,omitempty"`
	Education      *Section `json:"education,omitempty"`
	Warning        string   `json:"warning"`
	Ranking        []Score  `json:"ranking"`
}

func (r *Report) Detailed() bool { return r.Mode == ModeFull }

// Rank pairs labels with probabilities and sorts descending. Exact ties
// keep the lower index first.
func Rank(labels []string, probs []float32) ([]Score, error) {
	if len(labels) != len(probs) {
		return nil, fmt.Errorf("%w: %d labels, %d probabilities", ErrLengthMismatch, len(labels), len(probs))
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no classes to rank")
	}

	scores := make([]Score, len(labels))
	for i := range labels {
		scores[i] = Score{Index: i, Label: labels[i], Probability: float64(probs[i])}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Probability > scores[j].Probability
	})
	return scores, nil
}

func FormatConfidence(c float64) string {
	return fmt.Sprintf("%.2f%%", c*100)
}

// Compose builds the report for the top-ranked label.
func Compose(labels []string, probs []float32, base *knowledge.Base) (*Report, error) {
	ranking, err := Rank(labels, probs)
	if err != nil {
		return nil, err
	}
	top := ranking[0]
	rec := base.Lookup(top.Label)

	r := &Report{
		Label:          top.Label,
		Confidence:     top.Probability,
		ConfidenceText: FormatConfidence(top.Probability),
		Mode:           ModeFull,
		Explanation:    rec.Explanation(),
		Warning:        rec.WarningText(),
		Ranking:        ranking,
	}
	if IsSentinel(top.Label) {
		r.Mode = ModeMinimal
		return r, nil
	}

	r.Symptoms = newSection(rec.Symptoms())
	r.Education = newSection(rec.Education())
	return r, nil
}

func newSection(items []knowledge.Bullet) *Section {
	return &Section{Items: items, HTML: RenderBullets(items)}
}

// RenderBullets renders items as a list. Grouped items become a heading
// with a nested list of their sub entries.
func RenderBullets(items []knowledge.Bullet) template.HTML {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, item := range items {
		if item.Kind == knowledge.Grouped {
			b.WriteString("<li>")
			b.WriteString(template.HTMLEscapeString(item.Text))
			b.WriteString("<ul>")
			for _, sub := range item.Sub {
				fmt.Fprintf(&b, "<li>%s</li>", template.HTMLEscapeString(sub))
			}
			b.WriteString("</ul></li>")
		} else {
			fmt.Fprintf(&b, "<li>%s</li>", template.HTMLEscapeString(item.Text))
		}
	}
	b.WriteString("</ul>")
	return template.HTML(b.String())
}
