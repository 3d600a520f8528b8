package clipboard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrEmpty = errors.New("буфер обмена пуст")

type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// FileClipboard - буфер обмена в виде файла, который переносится между
// устройствами вручную или общей папкой.
type FileClipboard struct {
	path string
}

func NewFileClipboard(path string) *FileClipboard {
	return &FileClipboard{path: path}
}

func (c *FileClipboard) ReadText() (string, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrEmpty
	}
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return string(data), nil
}

func (c *FileClipboard) WriteText(text string) error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write clipboard: %w", err)
		}
	}
	if err := os.WriteFile(c.path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

// Memory - буфер в памяти, для тестов и встраивания.
type Memory struct {
	Text string
}

func (m *Memory) ReadText() (string, error) {
	if m.Text == "" {
		return "", ErrEmpty
	}
	return m.Text, nil
}

func (m *Memory) WriteText(text string) error {
	m.Text = text
	return nil
}
