package notify

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Notify("Payment successful!", Success)
	p.Notify("Payment cancelled", Warning)
	p.Notify("odd", Kind("other"))

	want := "✓ Payment successful!\n! Payment cancelled\ni odd\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestLogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	s := LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	s.Notify("Error loading overview", Error)
	s.Notify("heads up", Warning)

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "Error loading overview") {
		t.Errorf("missing error record: %q", out)
	}
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("missing warn record: %q", out)
	}
}

func TestBell(t *testing.T) {
	var buf bytes.Buffer
	NewBell(&buf).Alert(Alert{Title: "New Message", Body: "hi"})
	if !strings.HasPrefix(buf.String(), "\a") || !strings.Contains(buf.String(), "New Message: hi") {
		t.Errorf("bell output = %q", buf.String())
	}
}

func TestRecorderConcurrent(t *testing.T) {
	var r Recorder
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Notify("x", Info)
			r.Alert(Alert{Title: "t"})
		}()
	}
	wg.Wait()

	if len(r.Entries()) != 20 || len(r.Alerts()) != 20 {
		t.Errorf("entries = %d, alerts = %d", len(r.Entries()), len(r.Alerts()))
	}
	if !r.Has("x", Info) || r.Has("x", Error) {
		t.Error("Has mismatch")
	}
	if r.Last().Message != "x" {
		t.Errorf("last = %+v", r.Last())
	}
}

func TestDiscard(t *testing.T) {
	Discard.Notify("ignored", Error)
	NoAlerts.Alert(Alert{})
}
