package clipboard_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.ozon.dev/qwestard/umishka/internal/clipboard"
)

func TestFileClipboard(t *testing.T) {
	cb := clipboard.NewFileClipboard(filepath.Join(t.TempDir(), "share", "clip.txt"))

	_, err := cb.ReadText()
	assert.ErrorIs(t, err, clipboard.ErrEmpty)

	require.NoError(t, cb.WriteText(`{"orders":[]}`))
	text, err := cb.ReadText()
	require.NoError(t, err)
	assert.Equal(t, `{"orders":[]}`, text)
}
