package moderation

import "github.com/medshare/moderation/internal/models"

// Viewer is whoever is reading. The zero value is an unauthenticated viewer.
type Viewer struct {
	ID int64
}

// Authenticated reports whether the viewer is signed in.
func (v Viewer) Authenticated() bool {
	return v.ID > 0
}

// TargetSet is a set of ledger keys.
type TargetSet map[models.Target]bool

// AnonymousAuthor replaces the identity of anonymous entries.
var AnonymousAuthor = Author{ID: 0, Username: "Anonymous", Anonymous: true}

// Visibility applies removal and anonymity rules for one sentinel identity.
type Visibility struct {
	Sentinel Author
}

// FilterVisible applies the default rules with AnonymousAuthor.
func FilterVisible(entries []Entry, removals, anonymity TargetSet, viewer Viewer) []Entry {
	return Visibility{Sentinel: AnonymousAuthor}.Filter(entries, removals, anonymity, viewer)
}

// Filter drops removed entries and masks the owner of anonymous entries for
// everyone but the owner. Removed entries are dropped for every viewer. The
// result is a new slice; applying Filter to its own output changes nothing.
func (v Visibility) Filter(entries []Entry, removals, anonymity TargetSet, viewer Viewer) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		target := e.Target()
		if removals[target] {
			continue
		}
		if anonymity[target] && !(viewer.Authenticated() && viewer.ID == e.OwnerID) {
			e.Author = v.Sentinel
			e.OwnerID = 0
		}
		out = append(out, e)
	}
	return out
}
