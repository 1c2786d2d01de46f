package runtime

import "time"

// SetClock replaces the clock session ids are derived from
func SetClock(client *Client, now func() time.Time) {
	client.now = now
}
