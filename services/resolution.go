package services

import (
	"context"

	"github.com/bradselph/ThreadWarden/logger"
	"github.com/bradselph/ThreadWarden/metrics"
	"github.com/bradselph/ThreadWarden/models"
	"github.com/pkg/errors"
)

// ThreadEditor is the only Discord capability the resolution listener needs.
type ThreadEditor interface {
	EditThread(ctx context.Context, threadID string, edit models.ThreadEdit) error
}

type ResolutionConfig struct {
	ResolvedTagName string
	ResolvedMarker  string
	MaxNameLength   int
	ExemptThreadIDs []string
}

// ResolutionListener renames a thread when the resolved tag is applied to it.
type ResolutionListener struct {
	editor ThreadEditor
	cfg    ResolutionConfig
	exempt map[string]struct{}
}

func NewResolutionListener(editor ThreadEditor, cfg ResolutionConfig) *ResolutionListener {
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = DefaultMaxNameLength
	}
	return &ResolutionListener{
		editor: editor,
		cfg:    cfg,
		exempt: idSet(cfg.ExemptThreadIDs),
	}
}

// HandleThreadUpdate reacts to a thread update. before is nil when the
// previous snapshot is unknown. It returns an error only when the edit fails.
func (l *ResolutionListener) HandleThreadUpdate(ctx context.Context, before, after *models.Thread) error {
	if after == nil {
		return nil
	}
	if _, ok := l.exempt[after.ID]; ok {
		return nil
	}

	var previous []models.Tag
	if before != nil {
		previous = before.AppliedTags
		if !TagSetChanged(previous, after.AppliedTags) {
			return nil
		}
	}

	if Classify(after.AppliedTags, previous, before != nil, l.cfg.ResolvedTagName) != DispositionBecameResolved {
		return nil
	}
	if l.cfg.ResolvedMarker != "" && hasMarker(after.Name, l.cfg.ResolvedMarker) {
		return nil
	}

	resolved, _ := FindTag(after.AppliedTags, l.cfg.ResolvedTagName)
	name := WithMarker(l.cfg.ResolvedMarker, after.Name, l.cfg.MaxNameLength)
	tags := []string{resolved.ID}

	if err := l.editor.EditThread(ctx, after.ID, models.ThreadEdit{Name: &name, AppliedTags: &tags}); err != nil {
		logger.Log.WithError(err).WithField("thread", after.ID).Error("Failed to mark thread as resolved")
		return errors.Wrapf(err, "mark thread %s as resolved", after.ID)
	}

	metrics.ThreadsResolved.Inc()
	logger.Log.WithField("thread", after.ID).Infof("Thread renamed to indicate resolution: %s", name)
	return nil
}
