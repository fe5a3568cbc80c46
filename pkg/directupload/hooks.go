package directupload

import (
	"context"
	"log/slog"
)

// Hook system lets the UI layer observe an upload attempt.
// Hooks are notifications; they cannot change the outcome of an attempt.

// Hooks defines all available lifecycle hooks
type Hooks struct {
	// Fired when an attempt enters Signing
	OnAttemptStarted []AttemptStartedHook

	// Fired when an attempt enters Uploading
	OnUploadBegin []UploadBeginHook

	// Terminal hooks; exactly one fires per current attempt
	OnFailure []FailureHook
	OnSuccess []SuccessHook
}

// HookContext carries information through the hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]interface{} // Custom metadata passed between hooks
	StopChain bool                   // Set to true to stop processing remaining hooks
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]interface{}),
	}
}

// AttemptStartedHook is called when a file selection starts a new attempt
type AttemptStartedHook func(hctx *HookContext, attempt *Attempt, file *SelectedFile)

// UploadBeginHook is called once the policy is merged and the storage post is about to be sent
type UploadBeginHook func(hctx *HookContext, attempt *Attempt)

// FailureHook is called when an attempt fails
type FailureHook func(hctx *HookContext, attempt *Attempt, err error)

// SuccessHook is called when storage accepted the upload
type SuccessHook func(hctx *HookContext, attempt *Attempt, resp *StorageResponse)

// Merge appends the hooks of other to h
func (h *Hooks) Merge(other *Hooks) {
	if other == nil {
		return
	}
	h.OnAttemptStarted = append(h.OnAttemptStarted, other.OnAttemptStarted...)
	h.OnUploadBegin = append(h.OnUploadBegin, other.OnUploadBegin...)
	h.OnFailure = append(h.OnFailure, other.OnFailure...)
	h.OnSuccess = append(h.OnSuccess, other.OnSuccess...)
}

func (h *Hooks) executeAttemptStarted(ctx context.Context, attempt *Attempt, file *SelectedFile) {
	hctx := NewHookContext(ctx)
	for _, hook := range h.OnAttemptStarted {
		hook(hctx, attempt, file)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeUploadBegin(ctx context.Context, attempt *Attempt) {
	hctx := NewHookContext(ctx)
	for _, hook := range h.OnUploadBegin {
		hook(hctx, attempt)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeFailure(ctx context.Context, attempt *Attempt, err error) {
	hctx := NewHookContext(ctx)
	for _, hook := range h.OnFailure {
		hook(hctx, attempt, err)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeSuccess(ctx context.Context, attempt *Attempt, resp *StorageResponse) {
	hctx := NewHookContext(ctx)
	for _, hook := range h.OnSuccess {
		hook(hctx, attempt, resp)
		if hctx.StopChain {
			break
		}
	}
}

// LoggingHooks logs every lifecycle transition
func LoggingHooks(logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{
		OnAttemptStarted: []AttemptStartedHook{
			func(hctx *HookContext, attempt *Attempt, file *SelectedFile) {
				logger.Info("upload attempt started",
					"attempt", attempt.ID, "file", file.Name, "mime_type", file.MimeType, "size", file.Size)
			},
		},
		OnUploadBegin: []UploadBeginHook{
			func(hctx *HookContext, attempt *Attempt) {
				logger.Info("uploading to storage", "attempt", attempt.ID, "key", attempt.ObjectKey())
			},
		},
		OnFailure: []FailureHook{
			func(hctx *HookContext, attempt *Attempt, err error) {
				logger.Error("upload failed", "attempt", attempt.ID, "kind", Kind(err), "err", err)
			},
		},
		OnSuccess: []SuccessHook{
			func(hctx *HookContext, attempt *Attempt, resp *StorageResponse) {
				logger.Info("upload succeeded",
					"attempt", attempt.ID, "key", attempt.ObjectKey(), "status", resp.StatusCode, "location", resp.Location)
			},
		},
	}
}
