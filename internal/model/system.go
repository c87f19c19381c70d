package model

// SyncPhase is the visible synchronization state of the portfolio store.
type SyncPhase int

const (
	// SyncIdle means no user-visible operation is running.
	SyncIdle SyncPhase = iota
	// SyncLoading covers the initial load and mutation-triggered reloads.
	SyncLoading
	// SyncRefreshing covers a user-requested price refresh.
	SyncRefreshing
)

func (p SyncPhase) String() string {
	switch p {
	case SyncLoading:
		return "loading"
	case SyncRefreshing:
		return "refreshing"
	default:
		return "idle"
	}
}

// SyncState is the store's synchronization state plus the message of the last
// visible failure, if any.
type SyncState struct {
	Phase     SyncPhase `json:"phase"`
	LastError string    `json:"lastError,omitempty"`
}

// Busy reports whether a non-silent operation is in flight. Mutations are rejected
// while busy.
func (s SyncState) Busy() bool {
	return s.Phase != SyncIdle
}

// HealthStatus is the response of the portfolio service health endpoint.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
