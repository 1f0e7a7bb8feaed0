package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nutribunda/mpasi-backend/internal/platform/gemini"
	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
)

const (
	referenceDisplayName = "TKPI_COMPACT.txt"
	referenceMIMEType    = "text/plain"

	defaultPollAttempts = 60
	defaultPollInterval = 5 * time.Second
)

// ReferenceAttachment owns the composition file's lifecycle on the File API:
// find-or-upload, then wait until the file is ACTIVE. The handle is a lazy
// process-wide singleton; the mutex makes first-use initialization race-free.
type ReferenceAttachment struct {
	log   *logger.Logger
	files gemini.Client

	content []byte

	pollAttempts int
	pollInterval time.Duration

	mu  sync.Mutex
	ref *gemini.FileRef
}

func NewReferenceAttachment(log *logger.Logger, files gemini.Client, content []byte) *ReferenceAttachment {
	return &ReferenceAttachment{
		log:          log.With("service", "ReferenceAttachment"),
		files:        files,
		content:      content,
		pollAttempts: defaultPollAttempts,
		pollInterval: defaultPollInterval,
	}
}

// Ensure returns an ACTIVE file reference, initializing it on first use.
// Subsequent calls reuse the cached handle after re-checking its state is
// still ACTIVE (uploads expire server-side after a retention window).
func (a *ReferenceAttachment) Ensure(ctx context.Context) (*gemini.FileRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ref != nil {
		current, err := a.files.GetFile(ctx, a.ref.Name)
		if err == nil && current.Active() {
			a.ref = &current
			return a.ref, nil
		}
		a.log.Warn("Cached reference file no longer usable, re-resolving",
			"name", a.ref.Name,
			"error", err,
		)
		a.ref = nil
	}

	ref, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}
	a.ref = ref
	return a.ref, nil
}

func (a *ReferenceAttachment) resolve(ctx context.Context) (*gemini.FileRef, error) {
	// An earlier process may have uploaded the file already.
	existing, err := a.files.ListFiles(ctx)
	if err != nil {
		a.log.Warn("Could not list existing files, uploading fresh", "error", err)
	} else {
		for _, f := range existing {
			if f.DisplayName != referenceDisplayName {
				continue
			}
			if f.Active() {
				a.log.Info("Reusing existing reference file", "name", f.Name)
				ref := f
				return &ref, nil
			}
			a.log.Warn("Existing reference file not active, uploading fresh",
				"name", f.Name,
				"state", f.State,
			)
			break
		}
	}

	if len(a.content) == 0 {
		return nil, fmt.Errorf("no composition content to upload")
	}

	a.log.Info("Uploading reference file", "bytes", len(a.content))
	uploaded, err := a.files.UploadFile(ctx, referenceDisplayName, referenceMIMEType, a.content)
	if err != nil {
		return nil, fmt.Errorf("reference upload failed: %w", err)
	}

	return a.waitActive(ctx, uploaded)
}

// waitActive polls the file state with a bounded attempt budget; exhausting
// it is an explicit failure, never an indefinite wait.
func (a *ReferenceAttachment) waitActive(ctx context.Context, ref gemini.FileRef) (*gemini.FileRef, error) {
	if ref.Active() {
		return &ref, nil
	}

	for attempt := 1; attempt <= a.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.pollInterval):
		}

		current, err := a.files.GetFile(ctx, ref.Name)
		if err != nil {
			return nil, fmt.Errorf("reference state check failed: %w", err)
		}
		if current.Active() {
			a.log.Info("Reference file active", "name", current.Name, "attempts", attempt)
			return &current, nil
		}
		if current.State == gemini.FileStateFailed {
			return nil, fmt.Errorf("reference file processing failed (name=%s)", current.Name)
		}
		a.log.Debug("Reference file still processing",
			"name", current.Name,
			"state", current.State,
			"attempt", attempt,
			"max_attempts", a.pollAttempts,
		)
	}

	return nil, fmt.Errorf(
		"reference file not active after %d attempts (name=%s)",
		a.pollAttempts,
		ref.Name,
	)
}
