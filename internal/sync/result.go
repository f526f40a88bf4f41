package sync

import "errors"

var (
	// ErrSyncInProgress is returned when a run is triggered while another
	// one holds the sync lock. The caller rejects the trigger, it is never
	// queued behind the running pass.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrUpstreamUnavailable is returned when the task provider cannot be
	// reached at all (network, auth, or exhausted retries).
	ErrUpstreamUnavailable = errors.New("upstream task provider unavailable")
)

// Stats counts the entities created or updated in one sync pass. Errors
// counts entities that were skipped because their individual fetch or write
// failed; a pass with Errors > 0 still reports success with a warning.
type Stats struct {
	Groups        int `json:"groups"`
	Planners      int `json:"planners"`
	Tasks         int `json:"tasks"`
	Errors        int `json:"errors"`
	UsersEnriched int `json:"users_enriched"`
}

// Result is the transient outcome of one sync pass. It is produced once per
// invocation and handed straight back to the caller; only the last-run
// summary is kept (in Redis) for the status endpoint.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Stats   Stats  `json:"stats"`
	Error   string `json:"error,omitempty"`
}
