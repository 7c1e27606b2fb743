package host

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Host for tests. Dispatched turns complete only when
// the test calls FinishDispatch, so tests control signal ordering exactly.
type Fake struct {
	mu        sync.Mutex
	nextID    int
	contexts  map[string]*fakeContext
	delivered map[string][]string

	// CreateErr, when set, makes CreateContext fail.
	CreateErr error
	// DeliverErr, when set, makes Deliver fail.
	DeliverErr error
	// DeliverBlock, when non-nil, makes Deliver block until the channel is
	// closed. Used to simulate a hung parent context.
	DeliverBlock chan struct{}
}

type fakeContext struct {
	status    ContextStatus
	checklist []ChecklistItem
	pending   func(DispatchResult)
	aborted   bool
}

// NewFake creates an empty fake host.
func NewFake() *Fake {
	return &Fake{
		contexts:  make(map[string]*fakeContext),
		delivered: make(map[string][]string),
	}
}

// CreateContext returns handles ctx-1, ctx-2, ...
func (f *Fake) CreateContext(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.nextID++
	handle := fmt.Sprintf("ctx-%d", f.nextID)
	f.contexts[handle] = &fakeContext{status: StatusIdle}
	return handle, nil
}

// AddContext registers a pre-existing handle, for resume tests.
func (f *Fake) AddContext(handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contexts[handle] = &fakeContext{status: StatusIdle}
}

// Dispatch records the pending turn and returns immediately.
func (f *Fake) Dispatch(handle, _ string, onDone func(DispatchResult)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fc, ok := f.contexts[handle]
	if !ok {
		return fmt.Errorf("unknown execution context %q", handle)
	}
	fc.status = StatusRunning
	fc.pending = onDone
	return nil
}

// FinishDispatch completes the pending turn on handle with the given result.
// The callback runs on the caller's goroutine.
func (f *Fake) FinishDispatch(handle string, res DispatchResult) {
	f.mu.Lock()
	fc := f.contexts[handle]
	var onDone func(DispatchResult)
	if fc != nil {
		onDone = fc.pending
		fc.pending = nil
		fc.status = StatusIdle
	}
	f.mu.Unlock()

	if onDone != nil {
		onDone(res)
	}
}

// SetStatus overrides a context's reported status.
func (f *Fake) SetStatus(handle string, status ContextStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fc, ok := f.contexts[handle]; ok {
		fc.status = status
	}
}

// SetChecklist overrides a context's checklist items.
func (f *Fake) SetChecklist(handle string, items []ChecklistItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fc, ok := f.contexts[handle]; ok {
		fc.checklist = items
	}
}

// Status reports the context's current status.
func (f *Fake) Status(handle string) (ContextStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fc, ok := f.contexts[handle]
	if !ok {
		return "", fmt.Errorf("unknown execution context %q", handle)
	}
	return fc.status, nil
}

// Checklist returns the context's checklist items.
func (f *Fake) Checklist(handle string) ([]ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fc, ok := f.contexts[handle]
	if !ok {
		return nil, fmt.Errorf("unknown execution context %q", handle)
	}
	return append([]ChecklistItem(nil), fc.checklist...), nil
}

// Abort marks the context aborted.
func (f *Fake) Abort(handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fc, ok := f.contexts[handle]; ok {
		fc.aborted = true
	}
}

// Aborted reports whether Abort was called for handle.
func (f *Fake) Aborted(handle string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	fc, ok := f.contexts[handle]
	return ok && fc.aborted
}

// Deliver records the message, honoring DeliverBlock and DeliverErr.
func (f *Fake) Deliver(ctx context.Context, handle, message string) error {
	f.mu.Lock()
	block := f.DeliverBlock
	err := f.DeliverErr
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.delivered[handle] = append(f.delivered[handle], message)
	f.mu.Unlock()
	return nil
}

// Delivered returns the messages delivered to handle so far.
func (f *Fake) Delivered(handle string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.delivered[handle]...)
}
