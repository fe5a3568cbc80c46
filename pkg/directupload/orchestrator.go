package directupload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
)

// Orchestrator drives one upload attempt at a time from file selection to a
// terminal outcome. Selecting a new file makes it the current attempt; the
// previous attempt keeps running but its remaining hooks are suppressed.
type Orchestrator struct {
	uploadURL string
	fetcher   PolicyFetcher
	storage   StorageClient
	hooks     *Hooks
	logger    *slog.Logger

	mu      sync.RWMutex
	seq     uint64
	current *Attempt

	// serializes hook dispatch and current-attempt swaps
	notifyMu sync.Mutex
}

// Option configures an Orchestrator
type Option func(*Orchestrator) error

// WithStorageClient sets the client used for the storage post
func WithStorageClient(client StorageClient) Option {
	return func(o *Orchestrator) error {
		if client == nil {
			return errors.New("storage client cannot be nil")
		}
		o.storage = client
		return nil
	}
}

// WithHooks registers lifecycle hooks. May be given more than once.
func WithHooks(hooks *Hooks) Option {
	return func(o *Orchestrator) error {
		o.hooks.Merge(hooks)
		return nil
	}
}

// WithLogger sets the logger used for internal diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		o.logger = logger
		return nil
	}
}

// New creates an Orchestrator posting to the storage form at uploadURL
func New(uploadURL string, fetcher PolicyFetcher, opts ...Option) (*Orchestrator, error) {
	if uploadURL == "" {
		return nil, errors.New("upload url is required")
	}
	if fetcher == nil {
		return nil, errors.New("policy fetcher is required")
	}

	o := &Orchestrator{
		uploadURL: uploadURL,
		fetcher:   fetcher,
		storage:   NewFormStorageClient(),
		hooks:     &Hooks{},
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// Current returns the attempt whose outcome is still reported, or nil
func (o *Orchestrator) Current() *Attempt {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current
}

func (o *Orchestrator) isCurrent(a *Attempt) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current == a
}

// Select starts a new attempt for file and returns immediately. The attempt
// runs in the background; use Attempt.Wait or the hooks to observe it.
func (o *Orchestrator) Select(ctx context.Context, file *SelectedFile) *Attempt {
	a := o.start(ctx, file)
	go o.run(ctx, a)
	return a
}

// start makes a new attempt current and reports it to the started hooks
func (o *Orchestrator) start(ctx context.Context, file *SelectedFile) *Attempt {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	o.seq++
	a := newAttempt(o.seq, file)
	prev := o.current
	o.current = a
	o.mu.Unlock()

	if prev != nil && !prev.State().IsTerminal() {
		o.logger.Debug("superseding in-flight upload attempt", "attempt", prev.ID, "by", a.ID)
	}

	// Idle -> Signing cannot fail on a fresh attempt
	_ = a.transition(StateSigning)
	o.hooks.executeAttemptStarted(ctx, a, file)
	return a
}

// Upload selects file and blocks until the attempt resolves
func (o *Orchestrator) Upload(ctx context.Context, file *SelectedFile) (*StorageResponse, error) {
	a := o.Select(ctx, file)
	<-a.Done()
	return a.Response(), a.Err()
}

func (o *Orchestrator) run(ctx context.Context, a *Attempt) {
	defer a.finish()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("upload attempt panicked", "attempt", a.ID, "panic", r)
			terr := &TransportError{Op: "upload", URL: o.uploadURL, Err: fmt.Errorf("panic: %v", r)}
			if a.State() == StateSigning {
				terr.Op, terr.URL = "request_policy", ""
			}
			o.failAttempt(ctx, a, terr)
		}
	}()

	file := a.File
	if err := file.validate(); err != nil {
		o.failAttempt(ctx, a, err)
		return
	}

	policy, err := o.fetcher.RequestPolicy(ctx, file.Name, file.MimeType)
	if err != nil {
		o.failAttempt(ctx, a, err)
		return
	}

	sub, err := prepareSubmission(policy, file)
	if err != nil {
		o.failAttempt(ctx, a, err)
		return
	}
	a.setObjectKey(policy.ObjectKey)
	expected := policy.SuccessActionStatus

	if err := a.transition(StateUploading); err != nil {
		o.failAttempt(ctx, a, err)
		return
	}
	o.notify(a, func() { o.hooks.executeUploadBegin(ctx, a) })

	resp, err := o.storage.Post(ctx, o.uploadURL, sub, file)
	if err != nil {
		o.failAttempt(ctx, a, err)
		return
	}

	if strconv.Itoa(resp.StatusCode) != expected {
		rejected := &StorageRejectedError{StatusCode: resp.StatusCode, Expected: expected}
		if se := parseStorageError(resp.Body); se != nil {
			rejected.Code = se.Code
			rejected.Message = se.Message
		}
		o.failAttempt(ctx, a, rejected)
		return
	}

	if a.succeed(resp) {
		o.notify(a, func() { o.hooks.executeSuccess(ctx, a, resp) })
	}
}

// prepareSubmission checks the policy against the file and merges it
func prepareSubmission(policy *UploadPolicy, file *SelectedFile) (*Submission, error) {
	sub, err := Merge(policy)
	if err != nil {
		return nil, err
	}
	if err := policy.matches(file); err != nil {
		return nil, err
	}
	if _, err := strconv.Atoi(policy.SuccessActionStatus); err != nil {
		return nil, &MalformedPolicyError{
			Reason: fmt.Sprintf("success_action_status %q is not a status code", policy.SuccessActionStatus),
		}
	}
	return sub, nil
}

func (o *Orchestrator) failAttempt(ctx context.Context, a *Attempt, err error) {
	if a.fail(err) {
		o.notify(a, func() { o.hooks.executeFailure(ctx, a, err) })
	}
}

// notify runs fn only while a is the current attempt
func (o *Orchestrator) notify(a *Attempt, fn func()) {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	if !o.isCurrent(a) {
		o.logger.Debug("dropping notification for superseded attempt", "attempt", a.ID, "state", a.State())
		return
	}
	fn()
}
