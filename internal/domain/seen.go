package domain

import "time"

// SeenRecord is the durable trace of a candidate identity.
// Corresponds to the seen_players table.
//
// Invariants: FirstSeenAt <= LastSeenAt; FirstSeenAt is immutable once
// created; LastSeenAt only ever moves forward.
type SeenRecord struct {
	Identity    Identity
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// BlacklistRecord marks an identity the pipeline must never notify on.
// Corresponds to the blacklisted_players table. Written only by the
// operator CLI; the pipeline reads it.
type BlacklistRecord struct {
	Identity      Identity
	Reason        string
	BlacklistedAt time.Time
}
