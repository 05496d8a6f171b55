package domain

// ObjectInfo describes a stored object as reported by the object store.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

// Existence is the result of probing the object store for a key. A failed probe is
// never folded into NotFound: callers only proceed on a confirmed NotFound.
type Existence int

const (
	ProbeFailed Existence = iota
	Exists
	NotFound
)

func (e Existence) String() string {
	switch e {
	case Exists:
		return "exists"
	case NotFound:
		return "not_found"
	default:
		return "probe_failed"
	}
}

// Derivative pairs a target width with the derived key it is stored under.
type Derivative struct {
	Size int    `json:"size"`
	Key  string `json:"key"`
}

// Notification is a single object-creation event. Key is already URL-decoded.
type Notification struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}
