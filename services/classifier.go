package services

import "github.com/bradselph/ThreadWarden/models"

// Disposition is what a thread's tag set means for renaming.
type Disposition int

const (
	DispositionUnresolved Disposition = iota
	DispositionResolved
	DispositionBecameResolved
)

func (d Disposition) String() string {
	switch d {
	case DispositionResolved:
		return "resolved"
	case DispositionBecameResolved:
		return "became_resolved"
	default:
		return "unresolved"
	}
}

// FindTag returns the first tag whose name is exactly name. Tags are matched
// by name because IDs differ between forums.
func FindTag(tags []models.Tag, name string) (models.Tag, bool) {
	if name == "" {
		return models.Tag{}, false
	}
	for _, tag := range tags {
		if tag.Name == name {
			return tag, true
		}
	}
	return models.Tag{}, false
}

func HasTag(tags []models.Tag, name string) bool {
	_, ok := FindTag(tags, name)
	return ok
}

// TagSetChanged compares the applied tag IDs of two snapshots, ignoring order.
func TagSetChanged(before, after []models.Tag) bool {
	seen := make(map[string]struct{}, len(before))
	for _, tag := range before {
		seen[tag.ID] = struct{}{}
	}
	current := make(map[string]struct{}, len(after))
	for _, tag := range after {
		current[tag.ID] = struct{}{}
	}
	if len(seen) != len(current) {
		return true
	}
	for id := range current {
		if _, ok := seen[id]; !ok {
			return true
		}
	}
	return false
}

// Classify reports the disposition of current. Without a previous snapshot a
// resolved tag counts as newly applied.
func Classify(current, previous []models.Tag, hasPrevious bool, resolvedName string) Disposition {
	if !HasTag(current, resolvedName) {
		return DispositionUnresolved
	}
	if hasPrevious && HasTag(previous, resolvedName) {
		return DispositionResolved
	}
	return DispositionBecameResolved
}
