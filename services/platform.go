package services

import (
	"context"
	"sync"
	"time"

	"github.com/bradselph/ThreadWarden/models"
	"github.com/bwmarrin/discordgo"
)

// HistorySource supplies what the stats aggregator reads.
type HistorySource interface {
	History(ctx context.Context, threadID string, limit int) ([]*models.Message, error)
	User(ctx context.Context, userID string) (*models.User, error)
}

// Platform is the subset of Discord the lifecycle controller and the
// resolution listener call into.
type Platform interface {
	HistorySource
	Forum(ctx context.Context, forumID string) (*models.Forum, error)
	ActiveThreads(ctx context.Context, forum *models.Forum) ([]*models.Thread, error)
	Message(ctx context.Context, threadID, messageID string) (*models.Message, error)
	EditThread(ctx context.Context, threadID string, edit models.ThreadEdit) error
	SendMessage(ctx context.Context, channelID, content string) error
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
}

// ClosureLedger remembers which thread closures already had statistics sent.
type ClosureLedger interface {
	HasReported(ctx context.Context, threadID, lastMessageID string) (bool, error)
	RecordClosure(ctx context.Context, closure *models.ThreadClosure) error
}

// MemoryLedger is the ClosureLedger used when no database is configured.
// Its records do not survive a restart.
type MemoryLedger struct {
	mu       sync.Mutex
	closures map[string]models.ThreadClosure
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{closures: make(map[string]models.ThreadClosure)}
}

func (l *MemoryLedger) HasReported(_ context.Context, threadID, lastMessageID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.closures[closureKey(threadID, lastMessageID)]
	return ok, nil
}

func (l *MemoryLedger) RecordClosure(_ context.Context, closure *models.ThreadClosure) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := closureKey(closure.ThreadID, closure.LastMessageID)
	if _, ok := l.closures[key]; !ok {
		l.closures[key] = *closure
	}
	return nil
}

func closureKey(threadID, lastMessageID string) string {
	return threadID + ":" + lastMessageID
}

// Summary counts the closures held in memory. Closures after since are
// reported as recent.
func (l *MemoryLedger) Summary(_ context.Context, since time.Time) (models.ClosureSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var summary models.ClosureSummary
	for _, closure := range l.closures {
		summary.TotalClosures++
		summary.TotalMessages += closure.MessageCount
		if closure.ClosedAt.After(since) {
			summary.ClosuresLast24Hours++
		}
	}
	if summary.TotalClosures > 0 {
		summary.AverageMessages = float64(summary.TotalMessages) / float64(summary.TotalClosures)
	}
	return summary, nil
}
