package domain

import "time"

// Player is a raw candidate as advertised on the listing page.
// Produced fresh every scan; never persisted directly, only the
// derived SeenRecord is.
type Player struct {
	Identity
	Class      string
	ItemLevel  float64
	ListedAt   time.Time // listing timestamp from the source page
	ProfileURL string    // absolute URL of the character's listing page
}
