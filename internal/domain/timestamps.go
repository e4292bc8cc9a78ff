package domain

import "time"

// Timestamps holds the creation and modification times shared by catalog records.
// DateAdded is set once; DateModified moves on every mutation.
type Timestamps struct {
	DateAdded    time.Time `json:"date_added"`
	DateModified time.Time `json:"date_modified"`
}

// Touch sets DateModified to now.
func (t *Timestamps) Touch(now time.Time) {
	t.DateModified = now
}

// InitTimestamps sets DateAdded (when unset) and DateModified to now.
func (t *Timestamps) InitTimestamps(now time.Time) {
	if t.DateAdded.IsZero() {
		t.DateAdded = now
	}
	t.DateModified = now
}
