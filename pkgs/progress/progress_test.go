package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emx-mail/attachfetch/pkgs/event"
)

func TestBar(t *testing.T) {
	var buf bytes.Buffer
	b := NewBarWriter(&buf)

	b.Emit(event.Searching(3))
	b.Emit(event.Downloading(1, 3, "a.pdf"))
	b.Emit(event.Downloading(1, 3, "b.pdf"))
	b.Emit(event.Downloading(3, 3, "a-very-long-attachment-name-that-needs-truncating.pdf"))

	assert.Equal(t, 3, b.Files())
	assert.Equal(t, 3, b.done)
	b.Stop()
	b.Stop()
}

func TestBar_NoMessages(t *testing.T) {
	b := NewBarWriter(&bytes.Buffer{})
	b.Emit(event.Searching(0))
	b.Emit(event.Downloading(1, 1, "x"))
	b.Stop()
	assert.Equal(t, 1, b.Files())
}

var _ event.Sink = (*Bar)(nil)
