package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"the", "refund", "window", "is", "30", "days"},
		Words("The refund WINDOW is 30 days!"))
	assert.Equal(t, []string{"don't", "stop"}, Words("Don't stop."))
	assert.Nil(t, Words("!!! ---"))
	assert.Nil(t, Words(""))
}

func TestWords_Unicode(t *testing.T) {
	assert.Equal(t, []string{"café", "crème"}, Words("Café crème"))
}

func TestContentWords_FiltersStopwords(t *testing.T) {
	got := ContentWords("The refund window is thirty days from the purchase date")
	assert.Equal(t, []string{"refund", "window", "thirty", "days", "purchase", "date"}, got)
}

func TestContentWords_AllStopwords(t *testing.T) {
	assert.Empty(t, ContentWords("the and of to"))
}

func TestIsStopword(t *testing.T) {
	assert.True(t, IsStopword("the"))
	assert.True(t, IsStopword("which"))
	assert.False(t, IsStopword("refund"))
}
