package domain

import "strings"

// Identity uniquely identifies a listed character as a (name, realm)
// pair. Comparison is case-insensitive; Key() is the canonical form
// used as the dedup key everywhere.
type Identity struct {
	Name  string
	Realm string
}

// Key returns the canonical lowercase form of the identity.
func (id Identity) Key() string {
	return strings.ToLower(id.Name) + "|" + strings.ToLower(id.Realm)
}

// RealmSlug returns the realm in the kebab-case form external APIs
// expect ("Tarren Mill" -> "tarren-mill").
func (id Identity) RealmSlug() string {
	return strings.ReplaceAll(strings.ToLower(id.Realm), " ", "-")
}

// Equal reports whether two identities refer to the same character.
func (id Identity) Equal(other Identity) bool {
	return strings.EqualFold(id.Name, other.Name) && strings.EqualFold(id.Realm, other.Realm)
}

func (id Identity) String() string {
	return id.Name + "-" + id.Realm
}
