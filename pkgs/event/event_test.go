package event

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressJSON(t *testing.T) {
	b, err := json.Marshal(Searching(3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"searching","total":3}`, string(b))

	b, err = json.Marshal(Downloading(1, 3, "a.pdf"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"downloading","current":1,"total":3,"filename":"a.pdf"}`, string(b))
}

func TestChanSink(t *testing.T) {
	s := NewChanSink(2)
	s.Emit(Searching(2))
	s.Emit(Downloading(1, 2, "a"))
	s.Emit(Downloading(2, 2, "b"))
	s.Close()
	s.Emit(Downloading(2, 2, "c"))

	var got []Progress
	for p := range s.Events() {
		got = append(got, p)
	}
	require.Len(t, got, 2)
	assert.Equal(t, StatusSearching, got[0].Status)
	assert.Equal(t, "a", got[1].Filename)
	assert.Equal(t, 1, s.Dropped())
}

func TestChanSink_Concurrent(t *testing.T) {
	s := NewChanSink(100)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Emit(Downloading(i+1, 10, "f"))
		}(i)
	}
	wg.Wait()
	s.Close()

	n := 0
	for range s.Events() {
		n++
	}
	assert.Equal(t, 10, n)
}

func TestJSONSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONSink(&buf)
	s.now = func() time.Time { return time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC) }

	s.Emit(Searching(2))
	s.Emit(Downloading(1, 2, "report.pdf"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"type":"progress","timestamp":"2026-02-10T08:00:00Z","status":"downloading","current":1,"total":2,"filename":"report.pdf"}`, string(lines[1]))
}

func TestMultiAndDiscard(t *testing.T) {
	var a, b []Progress
	sink := Multi(
		SinkFunc(func(p Progress) { a = append(a, p) }),
		nil,
		SinkFunc(func(p Progress) { b = append(b, p) }),
	)
	sink.Emit(Searching(1))
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)

	assert.NotPanics(t, func() { OrDiscard(nil).Emit(Searching(1)) })
}
