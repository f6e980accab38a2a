package storage

import "strings"

// DeleteFailure records one URL that could not be removed.
type DeleteFailure struct {
	URL string
	Err error
}

// DeleteResult is the outcome of a best-effort multi-URL delete.
type DeleteResult struct {
	Succeeded []string
	Failed    []DeleteFailure
}

// OK reports whether every attempted delete succeeded.
func (r DeleteResult) OK() bool { return len(r.Failed) == 0 }

// Merge appends other's outcomes to r.
func (r *DeleteResult) Merge(other DeleteResult) {
	r.Succeeded = append(r.Succeeded, other.Succeeded...)
	r.Failed = append(r.Failed, other.Failed...)
}

func (r DeleteResult) String() string {
	if r.OK() {
		return "ok"
	}
	msgs := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		msgs = append(msgs, f.URL+": "+f.Err.Error())
	}
	return strings.Join(msgs, "; ")
}
