package knowledge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabels(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    Labels
		wantErr bool
	}{
		{"array", `["Acne", "Eczema", "Unknown"]`, Labels{"Acne", "Eczema", "Unknown"}, false},
		{"object by index", `{"2": "Unknown", "0": "Acne", "1": "Eczema"}`, Labels{"Acne", "Eczema", "Unknown"}, false},
		{"object with double digit keys", `{"10":"k","0":"a","1":"b","2":"c","3":"d","4":"e","5":"f","6":"g","7":"h","8":"i","9":"j"}`,
			Labels{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}, false},
		{"gap in indices", `{"0": "Acne", "2": "Eczema"}`, nil, true},
		{"non numeric key", `{"zero": "Acne"}`, nil, true},
		{"empty array", `[]`, nil, true},
		{"duplicate", `["Acne", "Acne"]`, nil, true},
		{"empty label", `["Acne", ""]`, nil, true},
		{"scalar", `"Acne"`, nil, true},
		{"blank", ``, nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLabels([]byte(tc.input))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLabelsIndex(t *testing.T) {
	labels := Labels{"A", "B", "C"}
	assert.Equal(t, 1, labels.Index("B"))
	assert.Equal(t, -1, labels.Index("Z"))
}

func TestBulletUnmarshalMixed(t *testing.T) {
	var items []Bullet
	input := `["Gatal", {"text": "Ruam", "sub": ["merah", "bersisik"]}, {"text": "Tanpa sub"}, {"text": "Kosong", "sub": []}]`
	require.NoError(t, json.Unmarshal([]byte(input), &items))
	require.Len(t, items, 4)

	assert.Equal(t, PlainBullet("Gatal"), items[0])
	assert.Equal(t, GroupedBullet("Ruam", "merah", "bersisik"), items[1])
	assert.Equal(t, PlainBullet("Tanpa sub"), items[2])
	assert.Equal(t, Grouped, items[3].Kind)
	assert.Empty(t, items[3].Sub)
}

func TestBulletUnmarshalRejectsMalformed(t *testing.T) {
	for _, input := range []string{`[1]`, `[{"sub": ["x"]}]`, `[{"text": "x", "sub": [1]}]`, `[["nested"]]`, `[true]`} {
		var items []Bullet
		assert.Error(t, json.Unmarshal([]byte(input), &items), input)
	}
}

func TestBulletMarshalRoundTrip(t *testing.T) {
	items := []Bullet{PlainBullet("a"), GroupedBullet("b", "c", "d")}
	data, err := json.Marshal(items)
	require.NoError(t, err)
	assert.JSONEq(t, `["a", {"text": "b", "sub": ["c", "d"]}]`, string(data))
}

func TestRecordDefaults(t *testing.T) {
	var rec Record
	assert.Equal(t, DefaultExplanation, rec.Explanation())
	assert.Equal(t, DefaultWarning, rec.WarningText())
	assert.NotNil(t, rec.Symptoms())
	assert.Empty(t, rec.Symptoms())
	assert.NotNil(t, rec.Education())

	empty := ""
	rec = Record{Penjelasan: &empty}
	assert.Equal(t, "", rec.Explanation())
}

func TestLoadBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edukasi.json")
	content := `{
		"Acne": {
			"penjelasan": "Peradangan folikel rambut.",
			"gejala": ["Komedo", {"text": "Benjolan", "sub": ["papula", "pustula"]}],
			"edukasi": ["Cuci muka dua kali sehari"],
			"warning": "Jangan memencet jerawat."
		},
		"Unknown": {"penjelasan": "Gambar tidak dikenali."}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	base, err := LoadBase(path)
	require.NoError(t, err)
	assert.Equal(t, 2, base.Len())
	assert.True(t, base.Has("Acne"))

	acne := base.Lookup("Acne")
	assert.Equal(t, "Peradangan folikel rambut.", acne.Explanation())
	assert.Equal(t, "Jangan memencet jerawat.", acne.WarningText())
	require.Len(t, acne.Symptoms(), 2)
	assert.Equal(t, []string{"papula", "pustula"}, acne.Symptoms()[1].Sub)

	unknown := base.Lookup("Unknown")
	assert.Equal(t, DefaultWarning, unknown.WarningText())

	missing := base.Lookup("Psoriasis")
	assert.Equal(t, Record{}, missing)
}

func TestLoadBaseErrors(t *testing.T) {
	_, err := LoadBase(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	for _, input := range []string{`null`, `[]`, `{"Acne": {"gejala": "not a list"}}`, `{`} {
		_, err := ParseBase([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestNilBaseLookup(t *testing.T) {
	var base *Base
	assert.Equal(t, Record{}, base.Lookup("Acne"))
	assert.False(t, base.Has("Acne"))
	assert.Zero(t, base.Len())
}

func TestShippedDataIsConsistent(t *testing.T) {
	labels, err := LoadLabels(filepath.Join("..", "..", "data", "class_labels.json"))
	require.NoError(t, err)
	base, err := LoadBase(filepath.Join("..", "..", "data", "edukasi.json"))
	require.NoError(t, err)

	for _, label := range labels {
		assert.True(t, base.Has(label), label)
	}
	for _, sentinel := range []string{"Non-Skin", "Normal Skin", "Unknown"} {
		assert.NotEqual(t, -1, labels.Index(sentinel), sentinel)
	}
}
