package protocol

// JobName identifies a kind of rendering job. The set is closed: workers
// compile in an implementation for every name and the broker refuses others.
type JobName string

const (
	// JobRank renders a player's ranked-queue card.
	JobRank JobName = "rank"

	// JobMatch renders a two-team match result card.
	JobMatch JobName = "match"
)

// Reserved frame tags written by workers. No job may use these names.
const (
	TagCompleted = "completed"
	TagError     = "error"
)

// JobNames returns every registered job name.
func JobNames() []JobName {
	return []JobName{JobRank, JobMatch}
}

// Valid reports whether n is a registered job name.
func (n JobName) Valid() bool {
	switch n {
	case JobRank, JobMatch:
		return true
	}
	return false
}

func (n JobName) String() string {
	return string(n)
}

// ParseJobName converts s to a JobName, rejecting unregistered names.
func ParseJobName(s string) (JobName, error) {
	n := JobName(s)
	if !n.Valid() {
		return "", ErrUnknownJob
	}
	return n, nil
}
