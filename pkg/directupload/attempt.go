package directupload

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle state of an upload attempt
type State string

const (
	StateIdle      State = "idle"
	StateSigning   State = "signing"
	StateUploading State = "uploading"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// IsTerminal returns true for Succeeded and Failed
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

var allowedTransitions = map[State][]State{
	StateIdle:      {StateSigning},
	StateSigning:   {StateUploading, StateFailed},
	StateUploading: {StateSucceeded, StateFailed},
}

func canTransition(from, to State) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Attempt is one file selection driven from Idle to a terminal state
type Attempt struct {
	ID   uuid.UUID
	Seq  uint64
	File *SelectedFile

	mu        sync.RWMutex
	state     State
	objectKey string
	err       error
	resp      *StorageResponse
	done      chan struct{}
	doneOnce  sync.Once
}

func newAttempt(seq uint64, file *SelectedFile) *Attempt {
	return &Attempt{
		ID:    uuid.New(),
		Seq:   seq,
		File:  file,
		state: StateIdle,
		done:  make(chan struct{}),
	}
}

// State returns the current state
func (a *Attempt) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// ObjectKey returns the storage key once a policy has been obtained
func (a *Attempt) ObjectKey() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.objectKey
}

// Err returns the failure of a Failed attempt
func (a *Attempt) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

// Response returns the storage response of a Succeeded attempt
func (a *Attempt) Response() *StorageResponse {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.resp
}

// Done is closed when the attempt reaches a terminal state
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the attempt resolves or ctx is done
func (a *Attempt) Wait(ctx context.Context) (*StorageResponse, error) {
	select {
	case <-a.done:
		return a.Response(), a.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Attempt) transition(to State) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !canTransition(a.state, to) {
		return fmt.Errorf("invalid attempt transition %s -> %s", a.state, to)
	}
	a.state = to
	return nil
}

func (a *Attempt) setObjectKey(key string) {
	a.mu.Lock()
	a.objectKey = key
	a.mu.Unlock()
}

// fail moves the attempt to Failed. It returns false if the attempt was already terminal.
func (a *Attempt) fail(err error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.IsTerminal() {
		return false
	}
	a.state = StateFailed
	a.err = err
	return true
}

func (a *Attempt) succeed(resp *StorageResponse) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateUploading {
		return false
	}
	a.state = StateSucceeded
	a.resp = resp
	return true
}

// finish releases waiters; called after the terminal hooks ran
func (a *Attempt) finish() {
	a.doneOnce.Do(func() { close(a.done) })
}
