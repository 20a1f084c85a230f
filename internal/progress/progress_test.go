package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndicator(t *testing.T) {
	buf := &bytes.Buffer{}
	ind := NewIndicator(Config{Writer: buf, ShowSpinner: true})
	require.NotNil(t, ind)
	assert.Equal(t, buf, ind.writer)
}

func TestNewIndicatorCIMode(t *testing.T) {
	ind := NewIndicator(Config{Writer: &bytes.Buffer{}, ShowSpinner: true, IsCI: true})
	assert.False(t, ind.showSpinner, "spinner should be disabled in CI mode")
}

func TestIndicatorPlain(t *testing.T) {
	buf := &bytes.Buffer{}
	ind := NewIndicator(Config{Writer: buf, ShowSpinner: false})

	ind.Start("Sending prompt to openai, please wait...")
	elapsed := ind.Stop()

	assert.Equal(t, "Sending prompt to openai, please wait...\n", buf.String())
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))

	// Stop is idempotent
	ind.Stop()
	assert.Equal(t, "Sending prompt to openai, please wait...\n", buf.String())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestIndicatorSpinnerStops(t *testing.T) {
	out := &syncBuffer{}
	ind := &Indicator{writer: out, showSpinner: true}

	ind.Start("waiting")
	time.Sleep(150 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		ind.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("spinner did not stop")
	}
	assert.Contains(t, out.String(), "waiting")
}

func TestStopWithoutStart(t *testing.T) {
	ind := NewIndicator(Config{Writer: &bytes.Buffer{}})
	assert.Equal(t, time.Duration(0), ind.Stop())
}

func TestSpinnerModel(t *testing.T) {
	m := newSpinnerModel("thinking")
	assert.Contains(t, m.View(), "thinking")
	assert.NotNil(t, m.Init())

	next, cmd := m.Update(stopMsg{})
	assert.NotNil(t, cmd)
	assert.Empty(t, next.View())
}

func TestStreamWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	sw := NewStreamWriter(buf, "│ ")

	n, err := sw.Write([]byte("first\nsec"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, "│ first\n", buf.String())

	_, err = sw.Write([]byte("ond\nthird"))
	require.NoError(t, err)
	assert.Equal(t, "│ first\n│ second\n", buf.String())

	require.NoError(t, sw.Flush())
	assert.Equal(t, "│ first\n│ second\n│ third\n", buf.String())

	require.NoError(t, sw.Flush())
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
}
