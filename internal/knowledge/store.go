package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// Labels is the ordered class list. Index i names output i of the classifier.
type Labels []string

// Index returns the position of label, or -1.
func (l Labels) Index(label string) int {
	for i, v := range l {
		if v == label {
			return i
		}
	}
	return -1
}

// Base maps a label to its educational record. It is never mutated after
// loading.
type Base struct {
	records map[string]Record
}

func NewBase(records map[string]Record) *Base {
	cp := make(map[string]Record, len(records))
	for k, v := range records {
		cp[k] = v
	}
	return &Base{records: cp}
}

// Lookup returns the record for label, or the empty record when absent.
func (b *Base) Lookup(label string) Record {
	if b == nil {
		return Record{}
	}
	return b.records[label]
}

func (b *Base) Has(label string) bool {
	if b == nil {
		return false
	}
	_, ok := b.records[label]
	return ok
}

func (b *Base) Len() int {
	if b == nil {
		return 0
	}
	return len(b.records)
}

func LoadLabels(path string) (Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	labels, err := ParseLabels(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse labels %s: %w", path, err)
	}
	return labels, nil
}

// ParseLabels accepts a JSON array of labels or a JSON object keyed by
// class index ({"0": "Acne", "1": "Eczema"}).
func ParseLabels(data []byte) (Labels, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty label file")
	}

	var labels Labels
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &labels); err != nil {
			return nil, err
		}
	case '{':
		var byIndex map[string]string
		if err := json.Unmarshal(data, &byIndex); err != nil {
			return nil, err
		}
		type entry struct {
			idx   int
			label string
		}
		entries := make([]entry, 0, len(byIndex))
		for k, v := range byIndex {
			idx, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("label key %q is not a class index", k)
			}
			entries = append(entries, entry{idx, v})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })
		for i, e := range entries {
			if e.idx != i {
				return nil, fmt.Errorf("label indices must be contiguous from 0, missing %d", i)
			}
			labels = append(labels, e.label)
		}
	default:
		return nil, fmt.Errorf("labels must be a JSON array or object")
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels defined")
	}
	seen := make(map[string]struct{}, len(labels))
	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("label %d is empty", i)
		}
		if _, dup := seen[l]; dup {
			return nil, fmt.Errorf("duplicate label %q", l)
		}
		seen[l] = struct{}{}
	}
	return labels, nil
}

func LoadBase(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge: %w", err)
	}
	base, err := ParseBase(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse knowledge %s: %w", path, err)
	}
	return base, nil
}

func ParseBase(data []byte) (*Base, error) {
	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, fmt.Errorf("knowledge must be a JSON object")
	}
	return &Base{records: records}, nil
}
