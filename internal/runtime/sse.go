package runtime

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxEventLineSize is the maximum size of a single event stream line
const maxEventLineSize = 1024 * 1024

// EventScanner reads the data payloads of a text/event-stream body.
// Consecutive data lines are joined by newlines; comments and other fields are skipped.
type EventScanner struct {
	scanner *bufio.Scanner
}

// NewEventScanner creates a new scanner reading from reader
func NewEventScanner(reader io.Reader) *EventScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLineSize)
	return &EventScanner{scanner: scanner}
}

// Next returns the next data payload or io.EOF once the stream ended
func (scanner *EventScanner) Next() (string, error) {
	var lines []string
	for scanner.scanner.Scan() {
		line := scanner.scanner.Text()

		if line == "" {
			if len(lines) > 0 {
				return strings.Join(lines, "\n"), nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			lines = append(lines, strings.TrimPrefix(data, " "))
		}
	}

	if err := scanner.scanner.Err(); err != nil {
		return "", fmt.Errorf("reading event stream: %w", err)
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n"), nil
	}
	return "", io.EOF
}
