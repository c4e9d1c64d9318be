package telemetry

import (
	"bytes"
	"strings"
	"testing"
)

func TestDiscardDropsEverything(t *testing.T) {
	Discard.Tracef("page %d evicted", 7) // must not panic
}

func TestWriterFormatsOneLinePerCall(t *testing.T) {
	var buf bytes.Buffer
	w := Writer{W: &buf}
	w.Tracef("[BufferPool] HIT pageID=%d frame=%d", 3, 1)

	got := buf.String()
	if !strings.HasPrefix(got, "[BufferPool] HIT pageID=3 frame=1") {
		t.Fatalf("unexpected output: %q", got)
	}
	if !strings.HasSuffix(got, "\n") {
		t.Fatalf("expected trailing newline, got %q", got)
	}
}
