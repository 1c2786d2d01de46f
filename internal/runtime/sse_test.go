package runtime

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// TestEventScanner verifies payload extraction from an event stream.
func TestEventScanner(t *testing.T) {
	stream := "data: first\n\n" +
		": comment\n" +
		"event: message\n" +
		"data: multi\n" +
		"data: line\n\n" +
		"\n\n" +
		"data:tight\n" +
		"data: trailing"

	scanner := NewEventScanner(strings.NewReader(stream))
	expected := []string{"first", "multi\nline", "tight\ntrailing"}
	for _, want := range expected {
		got, err := scanner.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
	if _, err := scanner.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
