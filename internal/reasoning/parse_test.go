package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{
			name:    "bare object",
			content: `{"result":"YES","confidence":9000}`,
			want:    `{"result":"YES","confidence":9000}`,
			ok:      true,
		},
		{
			name:    "fenced with language tag",
			content: "```json\n{\"result\":\"NO\"}\n```",
			want:    `{"result":"NO"}`,
			ok:      true,
		},
		{
			name:    "surrounding prose",
			content: "Sure, here is my answer:\n{\"result\":\"YES\",\"confidence\":8000}\nLet me know if you need more.",
			want:    `{"result":"YES","confidence":8000}`,
			ok:      true,
		},
		{
			name:    "nested object",
			content: `prefix {"type":"discrete","spec":{"source":"bitcoin","target":1}} suffix`,
			want:    `{"type":"discrete","spec":{"source":"bitcoin","target":1}}`,
			ok:      true,
		},
		{
			name:    "braces inside string literal",
			content: `{"reason":"value was {odd}","result":"NO"}`,
			want:    `{"reason":"value was {odd}","result":"NO"}`,
			ok:      true,
		},
		{
			name:    "no object",
			content: "I cannot determine the answer.",
			ok:      false,
		},
		{
			name:    "unbalanced",
			content: `{"result":"YES"`,
			ok:      false,
		},
		{
			name:    "empty",
			content: "   ",
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.content)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
