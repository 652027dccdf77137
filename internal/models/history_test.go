package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryAppend(t *testing.T) {
	h := NewHistory(0)
	h.Append("hi", "hello")

	assert.Equal(t, []Turn{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}, h.Turns())
}

func TestHistoryKeepsMostRecentWindow(t *testing.T) {
	h := NewHistory(DefaultHistoryWindow)
	for i := 0; i < 15; i++ {
		h.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	turns := h.Turns()
	require.Len(t, turns, DefaultHistoryWindow)
	assert.Equal(t, "q5", turns[0].Content, "oldest surviving exchange")
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "a14", turns[len(turns)-1].Content)
}

func TestHistoryTurnsIsCopy(t *testing.T) {
	h := NewHistory(4)
	h.Append("q", "a")

	turns := h.Turns()
	turns[0].Content = "changed"
	assert.Equal(t, "q", h.Turns()[0].Content)

	h.Reset()
	assert.Zero(t, h.Len())
}
