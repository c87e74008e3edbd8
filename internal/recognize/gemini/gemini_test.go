package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTranscription(t *testing.T) {
	tr, err := parseTranscription("```json\n{\"text\": \"Orokin Cell\", \"confidence\": 0.93}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Orokin Cell", tr.Text)
	assert.Equal(t, 0.93, tr.Confidence)

	tr, err = parseTranscription(`{"text": "", "confidence": 7}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, tr.Confidence)

	_, err = parseTranscription("I cannot read this")
	assert.Error(t, err)
}
