package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"github.com/ayusman/rfbviz/internal/annotation"
	"github.com/ayusman/rfbviz/internal/metrics"
	"github.com/ayusman/rfbviz/internal/store"
)

// Adjudicate accepts annotator's response for an instance unless the
// instance is already adjudicated. It reports whether a file was written.
//
// The check and the write are separate steps; two processes sharing the
// adjudicated directory can both write.
func (a *App) Adjudicate(ctx context.Context, annotator, guid, frame string) (bool, error) {
	if err := a.checkAnnotator(annotator); err != nil {
		return false, err
	}
	log := clog.FromContext(ctx).With("instance", annotation.InstanceID(guid, frame)).With("annotator", annotator)

	done, err := a.store.IsAdjudicated(guid, frame)
	if err != nil {
		return false, err
	}
	if done {
		log.Info("Instance already adjudicated, skipping")
		return false, nil
	}

	if err := a.store.Adjudicate(annotator, guid, frame); err != nil {
		return false, err
	}
	metrics.ObserveAdjudication(annotator)
	log.Info("Adjudicated instance")

	a.mu.RLock()
	callback := a.onAdjudicate
	a.mu.RUnlock()
	if callback != nil {
		callback(annotation.InstanceID(guid, frame), annotator)
	}

	if a.journal != nil {
		ev := &store.Adjudication{
			ID:        uuid.New().String(),
			GUID:      guid,
			Frame:     frame,
			Annotator: annotator,
		}
		if err := a.journal.Adjudications().Record(ev); err != nil {
			// The file is written; losing the row only loses history.
			log.Errorf("Failed to journal adjudication: %v", err)
		}
	}
	return true, nil
}

// OnAdjudicate sets a callback called after each adjudication file is written.
func (a *App) OnAdjudicate(fn func(instanceID, annotator string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onAdjudicate = fn
}

// History returns the journaled adjudications of an instance.
func (a *App) History(ctx context.Context, guid, frame string) ([]*store.Adjudication, error) {
	if a.journal == nil {
		return nil, ErrNoJournal
	}
	return a.journal.Adjudications().ListByInstance(guid, frame)
}

// Replace overwrites target's response with source's for one instance.
// confirm must be true. The target's prior content is saved under BackupDir
// and the replacement is journaled so it can be undone with Restore.
func (a *App) Replace(ctx context.Context, source, target, guid, frame string, confirm bool) (*store.Replacement, error) {
	if err := a.checkAnnotator(source); err != nil {
		return nil, err
	}
	if err := a.checkAnnotator(target); err != nil {
		return nil, err
	}
	if !confirm {
		return nil, ErrConfirmationRequired
	}

	rep := &store.Replacement{
		ID:              uuid.New().String(),
		GUID:            guid,
		Frame:           frame,
		SourceAnnotator: source,
		TargetAnnotator: target,
		CreatedAt:       time.Now(),
	}
	rep.BackupPath = filepath.Join(a.config.BackupDir, rep.ID+".json")

	if err := a.store.ReplaceAnnotation(source, target, guid, frame, rep.BackupPath); err != nil {
		return nil, err
	}
	metrics.ObserveReplacement()

	log := clog.FromContext(ctx).With("instance", annotation.InstanceID(guid, frame)).
		With("source", source).
		With("target", target).
		With("backup", rep.BackupPath)
	log.Warn("Replaced annotation")

	if a.journal != nil {
		if err := a.journal.Replacements().Create(rep); err != nil {
			return rep, fmt.Errorf("journal replacement (backup kept at %s): %w", rep.BackupPath, err)
		}
	}
	return rep, nil
}

// Replacements lists journaled replacements, newest first.
func (a *App) Replacements(ctx context.Context) ([]*store.Replacement, error) {
	if a.journal == nil {
		return nil, ErrNoJournal
	}
	return a.journal.Replacements().List()
}

// Restore writes a replacement's backup back over the target annotation.
func (a *App) Restore(ctx context.Context, id string) (*store.Replacement, error) {
	if a.journal == nil {
		return nil, ErrNoJournal
	}

	rep, err := a.journal.Replacements().GetByID(id)
	if err != nil {
		return nil, err
	}
	if rep.RestoredAt != nil {
		return nil, store.ErrAlreadyRestored
	}

	if err := a.store.RestoreAnnotation(rep.TargetAnnotator, rep.GUID, rep.Frame, rep.BackupPath); err != nil {
		return nil, err
	}
	if err := a.journal.Replacements().MarkRestored(id); err != nil {
		return nil, err
	}

	clog.FromContext(ctx).With("replacement", id).
		With("instance", annotation.InstanceID(rep.GUID, rep.Frame)).
		Info("Restored annotation from backup")

	return a.journal.Replacements().GetByID(id)
}
