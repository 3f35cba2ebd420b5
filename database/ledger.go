package database

import (
	"context"
	"errors"
	"time"

	"github.com/bradselph/ThreadWarden/errorhandler"
	"github.com/bradselph/ThreadWarden/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClosureLedger stores one row per thread closure whose statistics were sent.
type ClosureLedger struct {
	db *gorm.DB
}

func NewClosureLedger(db *gorm.DB) *ClosureLedger {
	return &ClosureLedger{db: db}
}

func (l *ClosureLedger) HasReported(ctx context.Context, threadID, lastMessageID string) (bool, error) {
	var closure models.ThreadClosure
	err := l.db.WithContext(ctx).
		Where("thread_id = ? AND last_message_id = ?", threadID, lastMessageID).
		First(&closure).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errorhandler.NewDatabaseError(err, "lookup thread closure")
	}
	return true, nil
}

func (l *ClosureLedger) RecordClosure(ctx context.Context, closure *models.ThreadClosure) error {
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(closure).Error
	if err != nil {
		return errorhandler.NewDatabaseError(err, "record thread closure")
	}
	return nil
}

// Summary counts recorded closures. Closures after since are reported as recent.
func (l *ClosureLedger) Summary(ctx context.Context, since time.Time) (models.ClosureSummary, error) {
	var totals struct {
		Closures int64
		Messages int64
	}
	err := l.db.WithContext(ctx).Model(&models.ThreadClosure{}).
		Select("COUNT(*) AS closures, COALESCE(SUM(message_count), 0) AS messages").
		Scan(&totals).Error
	if err != nil {
		return models.ClosureSummary{}, errorhandler.NewDatabaseError(err, "count thread closures")
	}

	var recent int64
	err = l.db.WithContext(ctx).Model(&models.ThreadClosure{}).
		Where("closed_at > ?", since).
		Count(&recent).Error
	if err != nil {
		return models.ClosureSummary{}, errorhandler.NewDatabaseError(err, "count recent thread closures")
	}

	summary := models.ClosureSummary{
		TotalClosures:       int(totals.Closures),
		ClosuresLast24Hours: int(recent),
		TotalMessages:       int(totals.Messages),
	}
	if summary.TotalClosures > 0 {
		summary.AverageMessages = float64(summary.TotalMessages) / float64(summary.TotalClosures)
	}
	return summary, nil
}
