package domain

// Visibility is the explicit listing predicate every query call site passes.
// There is deliberately no implicit "default scope": a new code path that
// forgets to choose exposes nothing it did not ask for.
//
// Merged-away donors are excluded under both settings; a merge permanently
// removes the losing record from listings while keeping it addressable by id.
type Visibility int

const (
	// VisibilityDefault hides archived records.
	VisibilityDefault Visibility = iota
	// VisibilityIncludeArchived shows archived records too.
	VisibilityIncludeArchived
)

// IncludesArchived reports whether archived rows pass the predicate.
func (v Visibility) IncludesArchived() bool { return v == VisibilityIncludeArchived }
