package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "json fence",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "generic fence",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "fence with language identifier",
			input: "```javascript\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "no fence",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "surrounding whitespace",
			input: "  \n {\"a\": 1} \n ",
			want:  `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "prose around object",
			input: `Here is the result: {"a": 1} Hope that helps!`,
			want:  `{"a": 1}`,
		},
		{
			name:  "nested objects",
			input: `result {"a": {"b": 2}} trailing`,
			want:  `{"a": {"b": 2}}`,
		},
		{
			name:  "braces inside strings",
			input: `{"a": "closing } inside"} extra`,
			want:  `{"a": "closing } inside"}`,
		},
		{
			name:  "no braces",
			input: `not json at all`,
			want:  `not json at all`,
		},
		{
			name:  "unterminated object",
			input: `{"a": 1`,
			want:  `{"a": 1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONObject(tt.input))
		})
	}
}

func TestRepairRules(t *testing.T) {
	t.Run("trailing commas", func(t *testing.T) {
		assert.Equal(t, `{"a": [1, 2]}`, fixTrailingCommas(`{"a": [1, 2,]}`))
		assert.Equal(t, `{"a": 1}`, fixTrailingCommas(`{"a": 1,}`))
	})

	t.Run("bare keys", func(t *testing.T) {
		assert.Equal(t, `{"a": 1, "b": 2}`, quoteBareKeys(`{a: 1, b: 2}`))
		// Already-quoted keys are untouched.
		assert.Equal(t, `{"a": 1}`, quoteBareKeys(`{"a": 1}`))
	})

	t.Run("single quotes", func(t *testing.T) {
		assert.Equal(t, `{"a": "x"}`, fixSingleQuotes(`{'a': 'x'}`))
	})
}

func TestParseTolerant(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
		validate  func(*testing.T, map[string]any)
	}{
		{
			name:  "valid json",
			input: `{"matched_required_keywords": ["SQL"]}`,
			validate: func(t *testing.T, payload map[string]any) {
				assert.Equal(t, []any{"SQL"}, payload["matched_required_keywords"])
			},
		},
		{
			name:  "fenced json with prose",
			input: "Sure! Here you go:\n```json\n{\"score\": 7}\n```",
			validate: func(t *testing.T, payload map[string]any) {
				assert.Equal(t, float64(7), payload["score"])
			},
		},
		{
			name:  "single quoted keys and values",
			input: `{'matched_required_keywords': ['SQL']}`,
			validate: func(t *testing.T, payload map[string]any) {
				assert.Equal(t, []any{"SQL"}, payload["matched_required_keywords"])
			},
		},
		{
			name:  "trailing comma",
			input: `{"a": [1, 2,],}`,
			validate: func(t *testing.T, payload map[string]any) {
				assert.Equal(t, []any{float64(1), float64(2)}, payload["a"])
			},
		},
		{
			name:  "bare keys",
			input: `{score: 3}`,
			validate: func(t *testing.T, payload map[string]any) {
				assert.Equal(t, float64(3), payload["score"])
			},
		},
		{
			name:      "irrecoverable syntax",
			input:     `{"a": [}`,
			wantError: true,
		},
		{
			name:      "not json at all",
			input:     `I could not produce an answer.`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := ParseTolerant(tt.input)
			if tt.wantError {
				require.Error(t, err)
				var parseErr *ParseError
				assert.ErrorAs(t, err, &parseErr)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, payload)
			}
		})
	}
}
