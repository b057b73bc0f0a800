package tabular

// Status tags the outcome of a Load.
type Status int

const (
	// StatusOK means Snapshot holds the file's content.
	StatusOK Status = iota
	// StatusNotFound means the file no longer exists.
	StatusNotFound
	// StatusEmpty means the file exists but holds no parseable data yet.
	StatusEmpty
)

// String returns a short lowercase name for s.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not-found"
	case StatusEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of loading one file.
type Result struct {
	Status   Status
	Snapshot *Snapshot
}

// Ok wraps a loaded snapshot.
func Ok(s *Snapshot) Result { return Result{Status: StatusOK, Snapshot: s} }

// NotFound reports a vanished file.
func NotFound() Result { return Result{Status: StatusNotFound} }

// Empty reports a file with no content.
func Empty() Result { return Result{Status: StatusEmpty} }
