package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	DefaultExplanation = "-"
	DefaultWarning     = "Tidak ada peringatan khusus."
)

type BulletKind int

const (
	Plain BulletKind = iota
	Grouped
)

// Bullet is one symptom or education entry. A Grouped bullet carries a
// heading in Text and its leaf entries in Sub.
type Bullet struct {
	Kind BulletKind
	Text string
	Sub  []string
}

func PlainBullet(text string) Bullet {
	return Bullet{Kind: Plain, Text: text}
}

func GroupedBullet(heading string, sub ...string) Bullet {
	if sub == nil {
		sub = []string{}
	}
	return Bullet{Kind: Grouped, Text: heading, Sub: sub}
}

type groupedJSON struct {
	Text *string   `json:"text"`
	Sub  *[]string `json:"sub"`
}

// UnmarshalJSON accepts either a bare string or an object with "text" and
// an optional "sub" list.
func (b *Bullet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty bullet")
	}

	switch data[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*b = PlainBullet(text)
		return nil
	case '{':
		var g groupedJSON
		if err := json.Unmarshal(data, &g); err != nil {
			return fmt.Errorf("grouped bullet: %w", err)
		}
		if g.Text == nil {
			return fmt.Errorf("grouped bullet without text: %s", data)
		}
		if g.Sub == nil {
			*b = PlainBullet(*g.Text)
			return nil
		}
		*b = GroupedBullet(*g.Text, (*g.Sub)...)
		return nil
	default:
		return fmt.Errorf("bullet must be a string or an object, got %s", data)
	}
}

func (b Bullet) MarshalJSON() ([]byte, error) {
	if b.Kind == Grouped {
		sub := b.Sub
		if sub == nil {
			sub = []string{}
		}
		return json.Marshal(struct {
			Text string   `json:"text"`
			Sub  []string `json:"sub"`
		}{b.Text, sub})
	}
	return json.Marshal(b.Text)
}

// Record is the educational content for one label.
type Record struct {
	Penjelasan *string  `json:"penjelasan,omitempty"`
	Gejala     []Bullet `json:"gejala,omitempty"`
	Edukasi    []Bullet `json:"edukasi,omitempty"`
	Warning    *string  `json:"warning,omitempty"`
}

func (r Record) Explanation() string {
	if r.Penjelasan == nil {
		return DefaultExplanation
	}
	return *r.Penjelasan
}

func (r Record) WarningText() string {
	if r.Warning == nil {
		return DefaultWarning
	}
	return *r.Warning
}

func (r Record) Symptoms() []Bullet {
	if r.Gejala == nil {
		return []Bullet{}
	}
	return r.Gejala
}

func (r Record) Education() []Bullet {
	if r.Edukasi == nil {
		return []Bullet{}
	}
	return r.Edukasi
}
