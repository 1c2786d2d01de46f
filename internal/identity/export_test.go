package identity

import "time"

// SetClock replaces the broker's time source
func SetClock(broker *Broker, now func() time.Time) {
	broker.now = now
}
