package resolver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var doc any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestLookup(t *testing.T) {
	doc := decode(t, `{
		"bitcoin": {"usd": 50000},
		"rates": {"EUR": 0.91},
		"current_condition": [{"temp_C": "21"}],
		"list": [1, 2, [3, 4]]
	}`)

	tests := []struct {
		name string
		path string
		want any
		ok   bool
	}{
		{"nested keys", "bitcoin.usd", float64(50000), true},
		{"rate by code", "rates.EUR", 0.91, true},
		{"index then key", "current_condition[0].temp_C", "21", true},
		{"double index", "list[2][1]", float64(4), true},
		{"missing key", "bitcoin.eur", nil, false},
		{"missing root", "ethereum.usd", nil, false},
		{"index out of range", "current_condition[3].temp_C", nil, false},
		{"index into object", "bitcoin[0]", nil, false},
		{"key into array", "list.usd", nil, false},
		{"empty segment", "bitcoin..usd", nil, false},
		{"malformed bracket", "list[x]", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(doc, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNumeric(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float", float64(42.5), 42.5, true},
		{"numeric string", "21", 21, true},
		{"padded string", " 3.14 ", 3.14, true},
		{"word", "warm", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Numeric(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
