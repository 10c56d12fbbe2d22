package syncengine

import (
	"sync"
	"time"

	"github.com/justinlyon12/flashsync/internal/syncclient"
)

// Status is one state in the sync engine's FSM, spec.md §4.7.
type Status int

const (
	Idle Status = iota
	Connecting
	UploadingFiles
	AwaitingOrphanConfirmation
	PushingReviews
	PullingState
	ApplyingChanges
	WritingFiles
	Completed
	Failed
)

// String returns the human-readable name of a status.
func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case UploadingFiles:
		return "uploading_files"
	case AwaitingOrphanConfirmation:
		return "awaiting_orphan_confirmation"
	case PushingReviews:
		return "pushing_reviews"
	case PullingState:
		return "pulling_state"
	case ApplyingChanges:
		return "applying_changes"
	case WritingFiles:
		return "writing_files"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time read of the engine's guarded state, handed
// back to callers rather than a live pointer (spec.md §9 "Global mutable
// state" — the guard itself never leaves the package).
type Snapshot struct {
	Status       Status
	LastError    string
	Orphans      []syncclient.OrphanedCard
	UpdatedFiles []syncclient.UploadFile
	LastSyncAt   *time.Time
}

// StatusCell is the engine's guarded status + stats, polled by callers
// between async steps.
type StatusCell struct {
	mu           sync.Mutex
	status       Status
	lastError    string
	orphans      []syncclient.OrphanedCard
	updatedFiles []syncclient.UploadFile
	lastSyncAt   *time.Time
}

func (c *StatusCell) set(status Status, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
	if err != nil {
		c.lastError = err.Error()
	} else if status != Failed {
		c.lastError = ""
	}
}

func (c *StatusCell) setOrphans(orphans []syncclient.OrphanedCard) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orphans = orphans
}

func (c *StatusCell) setUpdatedFiles(files []syncclient.UploadFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updatedFiles = files
}

func (c *StatusCell) setLastSyncAt(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSyncAt = &t
}

// Snapshot returns a copy of the current guarded state.
func (c *StatusCell) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Status:       c.status,
		LastError:    c.lastError,
		Orphans:      append([]syncclient.OrphanedCard(nil), c.orphans...),
		UpdatedFiles: append([]syncclient.UploadFile(nil), c.updatedFiles...),
		LastSyncAt:   c.lastSyncAt,
	}
}
