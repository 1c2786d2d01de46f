package runtime

import (
	"fmt"
	"time"
)

const (
	// SessionHeader carries the runtime session a request belongs to
	SessionHeader = "X-Amzn-Bedrock-AgentCore-Runtime-Session-Id"

	// TraceHeader carries the trace id; it is set to the session id
	TraceHeader = "X-Amzn-Trace-Id"

	sessionPrefix = "runtime-with-identity-"
)

// NewSessionID generates a session id derived from the given time, e.g.
// runtime-with-identity-20250101T120000123456Z
func NewSessionID(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("%s%s%06dZ", sessionPrefix, now.Format("20060102T150405"), now.Nanosecond()/int(time.Microsecond))
}
