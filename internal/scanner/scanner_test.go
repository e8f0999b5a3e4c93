package scanner

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/banshee-data/parcel.station/internal/timeutil"
)

func TestParseTriggerLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
		wantErr  bool
	}{
		{"plain barcode", "ABC12345", "ABC12345", false},
		{"surrounding whitespace", "  ABC12345  ", "ABC12345", false},
		{"stx etx framed", "\x02ABC12345\x03", "ABC12345", false},
		{"framed with whitespace", " \x02JD0012345678\x03 ", "JD0012345678", false},
		{"empty", "", "", true},
		{"frame only", "\x02\x03", "", true},
		{"whitespace only", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTriggerLine(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTriggerLine(%q) = %q, want error", tt.line, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTriggerLine(%q) error: %v", tt.line, err)
			}
			if got != tt.expected {
				t.Errorf("ParseTriggerLine(%q) = %q, want %q", tt.line, got, tt.expected)
			}
		})
	}
}

type stubMux struct {
	ch chan string
}

func (s *stubMux) Name() string                      { return "scanner" }
func (s *stubMux) Subscribe() (string, chan string)  { return "stub", s.ch }
func (s *stubMux) Unsubscribe(string)                {}
func (s *stubMux) SendCommand(string) error          { return nil }
func (s *stubMux) Monitor(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }
func (s *stubMux) Close() error                      { close(s.ch); return nil }
func (s *stubMux) AttachAdminRoutes(*http.ServeMux)  {}

func TestFeedEmitsTriggers(t *testing.T) {
	mux := &stubMux{ch: make(chan string)}
	clock := timeutil.NewMockClock(time.Unix(500, 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []Trigger
	done := make(chan struct{})
	go func() {
		Feed(ctx, mux, clock, func(tr Trigger) { got = append(got, tr) })
		close(done)
	}()

	mux.ch <- "ABC12345"
	mux.ch <- "   " // noise, skipped
	mux.ch <- "\x02XYZ777\x03"
	mux.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Feed did not return after channel close")
	}

	if len(got) != 2 {
		t.Fatalf("got %d triggers, want 2: %+v", len(got), got)
	}
	if got[0].Barcode != "ABC12345" || got[1].Barcode != "XYZ777" {
		t.Errorf("triggers = %+v", got)
	}
	if !got[0].Timestamp.Equal(time.Unix(500, 0)) {
		t.Errorf("trigger timestamp = %v, want clock time", got[0].Timestamp)
	}
}
