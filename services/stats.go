package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bradselph/ThreadWarden/errorhandler"
	"github.com/bradselph/ThreadWarden/logger"
	"github.com/bradselph/ThreadWarden/models"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

const unknownOwner = "unknown"

// AggregateThreadStats reads the whole history of thread and summarises who
// took part. The opening post is part of the history and is counted.
func AggregateThreadStats(ctx context.Context, source HistorySource, thread *models.Thread, closedAt time.Time) (*models.ThreadStats, error) {
	history, err := source.History(ctx, thread.ID, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "read history of thread %s", thread.ID)
	}

	summary := Summarize(history)

	stats := &models.ThreadStats{
		ThreadID:         thread.ID,
		ThreadName:       thread.Name,
		GuildID:          thread.GuildID,
		OwnerName:        unknownOwner,
		OwnerID:          unknownOwner,
		OpenedAt:         thread.CreatedAt,
		ClosedAt:         closedAt,
		Duration:         HumanizeDuration(thread.CreatedAt, closedAt),
		Summary:          summary,
		Participants:     sortedParticipants(summary),
		ParticipantCount: len(summary),
		MessageCount:     summary.Total(),
	}

	for _, tag := range thread.AppliedTags {
		if tag.Name != "" {
			stats.TagNames = append(stats.TagNames, tag.Name)
		}
	}

	if thread.OwnerID != "" {
		owner, err := source.User(ctx, thread.OwnerID)
		if err != nil {
			errorhandler.HandleError(errorhandler.NewAggregationError(err, "resolve owner of thread "+thread.ID))
		} else if owner != nil {
			stats.OwnerName = owner.Name
			stats.OwnerID = owner.ID
		}
	}

	logger.Log.WithField("thread", thread.ID).
		WithField("participants", stats.ParticipantCount).
		WithField("messages", stats.MessageCount).
		Debug("Aggregated thread statistics")

	return stats, nil
}

// Summarize counts messages per author display name. Messages without an
// author are counted under "unknown" so the total always equals len(history).
func Summarize(history []*models.Message) models.ParticipationSummary {
	summary := make(models.ParticipationSummary)
	for _, m := range history {
		if m == nil {
			continue
		}
		name := m.AuthorName
		if name == "" {
			name = unknownOwner
		}
		summary[name]++
	}
	return summary
}

func sortedParticipants(summary models.ParticipationSummary) []models.Participant {
	participants := make([]models.Participant, 0, len(summary))
	for name, count := range summary {
		participants = append(participants, models.Participant{Name: name, Messages: count})
	}
	sort.Slice(participants, func(i, j int) bool {
		if participants[i].Messages != participants[j].Messages {
			return participants[i].Messages > participants[j].Messages
		}
		return participants[i].Name < participants[j].Name
	})
	return participants
}

// HumanizeDuration renders the time between opened and closed, e.g. "2 weeks".
func HumanizeDuration(opened, closed time.Time) string {
	if opened.IsZero() {
		return unknownOwner
	}
	return strings.TrimSpace(humanize.RelTime(opened, closed, "", ""))
}
