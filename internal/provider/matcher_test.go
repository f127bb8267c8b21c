package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeDoc(t *testing.T, raw string) any {
	t.Helper()
	var doc any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestNewMatcher_RejectsBadExpression(t *testing.T) {
	_, err := NewMatcher("status ==", "")
	assert.Error(t, err)

	_, err = NewMatcher("status", "message[")
	assert.Error(t, err)
}

func TestMustMatcher_Panics(t *testing.T) {
	assert.Panics(t, func() { MustMatcher("a ==", "") })
}

func TestMatcher_Match(t *testing.T) {
	p := MustMatcher("status == 'error' && code == 'rateLimited'", "message")

	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{"quota payload", `{"status":"error","code":"rateLimited","message":"too many"}`, true},
		{"other error", `{"status":"error","code":"apiKeyInvalid"}`, false},
		{"success", `{"status":"ok","articles":[]}`, false},
		{"array document", `[1,2,3]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Match(decodeDoc(t, tt.doc)))
		})
	}
}

func TestMatcher_Message(t *testing.T) {
	p := MustMatcher("Information != null", "Information")

	assert.Equal(t, "limit hit", p.Message(decodeDoc(t, `{"Information":"limit hit"}`)))
	assert.Equal(t, "", p.Message(decodeDoc(t, `{"Information":42}`)))
	assert.Equal(t, "", MustMatcher("a", "").Message(decodeDoc(t, `{"a":"x"}`)))
}

func TestMatcher_NilNeverMatches(t *testing.T) {
	var p *Matcher
	assert.False(t, p.Match(map[string]any{"a": true}))
	assert.Equal(t, "", p.Message(nil))
}

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(false))
	assert.False(t, truthy(""))
	assert.False(t, truthy([]any{}))
	assert.False(t, truthy(map[string]any{}))
	assert.True(t, truthy(true))
	assert.True(t, truthy("x"))
	assert.True(t, truthy(0.0))
	assert.True(t, truthy([]any{1}))
}
