package cmd

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer lets the printer goroutine and the test share a buffer.
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

func TestProgressPrinterLifecycle(t *testing.T) {
	var out syncBuffer
	printer := newProgressPrinter(&out, 0, "scripts")

	printer.Start()
	printer.SetTotal(2)
	printer.Increment(true, 500*time.Millisecond)
	printer.Increment(false, time.Second)
	time.Sleep(350 * time.Millisecond)
	printer.Stop()
	printer.Stop()

	output := out.String()
	if !strings.Contains(output, "Progress: 2/2 (100.0%)") {
		t.Fatalf("expected summary progress, got %q", output)
	}
	if !strings.Contains(output, "OK:1") || !strings.Contains(output, "Fail:1") {
		t.Fatalf("expected OK/Fail counts in output, got %q", output)
	}
	if !strings.Contains(output, "Avg:0.75s") {
		t.Fatalf("expected average duration in output, got %q", output)
	}
}

func TestProgressPrinterLine(t *testing.T) {
	printer := newProgressPrinter(&bytes.Buffer{}, 0, "targets")
	if got := printer.line(); got != "[targets] Progress: 0/0 (100.0%) OK:0 Fail:0" {
		t.Fatalf("unexpected empty line %q", got)
	}

	printer.Increment(true, 0)
	if got := printer.line(); !strings.Contains(got, "1/1") || strings.Contains(got, "Avg") {
		t.Fatalf("unexpected line %q", got)
	}
}
