package services

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bradselph/ThreadWarden/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(id, authorID, author string) *models.Message {
	return &models.Message{ID: id, AuthorID: authorID, AuthorName: author}
}

func TestSummarize(t *testing.T) {
	history := []*models.Message{
		msg("5", "43", "bob"),
		msg("4", "42", "alice"),
		msg("3", "43", "bob"),
		msg("2", "", ""),
		msg("1", "42", "alice"),
		msg("0", "43", "bob"),
	}

	summary := Summarize(history)
	assert.Equal(t, models.ParticipationSummary{"bob": 3, "alice": 2, "unknown": 1}, summary)
	assert.Equal(t, len(history), summary.Total())
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	assert.Empty(t, summary)
	assert.Equal(t, 0, summary.Total())
}

func TestAggregateThreadStats(t *testing.T) {
	p := newFakePlatform()
	p.users["42"] = &models.User{ID: "42", Name: "alice"}
	p.addMessage("200", msg("1", "42", "alice"))
	p.addMessage("200", msg("2", "43", "bob"))
	p.addMessage("200", msg("3", "42", "alice"))

	opened := time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC)
	closed := opened.Add(3 * 24 * time.Hour)
	thread := &models.Thread{
		ID:          "200",
		GuildID:     "1",
		Name:        "Help",
		OwnerID:     "42",
		CreatedAt:   opened,
		AppliedTags: []models.Tag{{ID: "10", Name: "Bug"}, {ID: "11"}},
	}

	stats, err := AggregateThreadStats(context.Background(), p, thread, closed)
	require.NoError(t, err)

	assert.Equal(t, "alice", stats.OwnerName)
	assert.Equal(t, "42", stats.OwnerID)
	assert.Equal(t, 2, stats.ParticipantCount)
	assert.Equal(t, 3, stats.MessageCount)
	assert.Equal(t, []models.Participant{{Name: "alice", Messages: 2}, {Name: "bob", Messages: 1}}, stats.Participants)
	assert.Equal(t, []string{"Bug"}, stats.TagNames)
	assert.Equal(t, "3 days", stats.Duration)
	assert.Equal(t, opened, stats.OpenedAt)
	assert.Equal(t, closed, stats.ClosedAt)
}

func TestAggregateThreadStatsOwnerOnly(t *testing.T) {
	p := newFakePlatform()
	p.users["42"] = &models.User{ID: "42", Name: "alice"}
	p.addMessage("200", msg("1", "42", "alice"))

	stats, err := AggregateThreadStats(context.Background(), p, &models.Thread{ID: "200", OwnerID: "42"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ParticipantCount)
	assert.Equal(t, 1, stats.MessageCount)
}

func TestAggregateThreadStatsEmptyHistory(t *testing.T) {
	p := newFakePlatform()

	stats, err := AggregateThreadStats(context.Background(), p, &models.Thread{ID: "200"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ParticipantCount)
	assert.Equal(t, 0, stats.MessageCount)
	assert.Empty(t, stats.Participants)
	assert.Equal(t, "unknown", stats.OwnerName)
	assert.Equal(t, "unknown", stats.Duration)
}

func TestAggregateThreadStatsUnknownOwner(t *testing.T) {
	p := newFakePlatform()
	p.addMessage("200", msg("1", "42", "alice"))

	stats, err := AggregateThreadStats(context.Background(), p, &models.Thread{ID: "200", OwnerID: "42"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "unknown", stats.OwnerName)
	assert.Equal(t, "unknown", stats.OwnerID)
	assert.Equal(t, 1, stats.MessageCount)
}

func TestAggregateThreadStatsHistoryFailure(t *testing.T) {
	p := newFakePlatform()
	p.failures["history"] = errors.New("gateway timeout")

	_, err := AggregateThreadStats(context.Background(), p, &models.Thread{ID: "200"}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read history of thread 200")
}

func TestSortedParticipantsTieBreaksByName(t *testing.T) {
	got := sortedParticipants(models.ParticipationSummary{"carol": 2, "alice": 2, "bob": 5})
	assert.Equal(t, []models.Participant{
		{Name: "bob", Messages: 5},
		{Name: "alice", Messages: 2},
		{Name: "carol", Messages: 2},
	}, got)
}

func TestCreateStatsEmbed(t *testing.T) {
	paris := time.FixedZone("CEST", 2*60*60)

	stats := &models.ThreadStats{
		ThreadID:         "200",
		ThreadName:       "Help",
		GuildID:          "1",
		OwnerName:        "alice",
		OwnerID:          "42",
		OpenedAt:         time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC),
		ClosedAt:         time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC),
		Duration:         "2 weeks",
		Participants:     []models.Participant{{Name: "alice", Messages: 2}, {Name: "bob", Messages: 1}},
		ParticipantCount: 2,
		MessageCount:     3,
	}

	embed := CreateStatsEmbed(stats, "🔒 - ", paris)
	assert.Equal(t, "🔒 - Thread statistics `Help`", embed.Title)
	assert.Equal(t, "https://discord.com/channels/1/200", embed.URL)
	assert.Equal(t, "2026-10-17T12:00:00Z", embed.Timestamp)

	names := make([]string, 0, len(embed.Fields))
	values := make(map[string]string)
	for _, f := range embed.Fields {
		assert.True(t, f.Inline)
		names = append(names, f.Name)
		values[f.Name] = f.Value
	}
	assert.Equal(t, []string{
		"Opened", "Closed", "Duration", "Creator",
		"Participant count", "Message count", "Participants", "Tags",
	}, names)
	assert.Equal(t, "01.10.2026 - 11:00", values["Opened"])
	assert.Equal(t, "17.10.2026 - 14:00", values["Closed"])
	assert.Equal(t, "alice (ID: 42)", values["Creator"])
	assert.Equal(t, "2", values["Participant count"])
	assert.Equal(t, "3", values["Message count"])
	assert.Equal(t, "alice - 2 messages\nbob - 1 messages", values["Participants"])
	assert.Equal(t, "No tags", values["Tags"])
}

func TestCreateStatsEmbedTruncatesFields(t *testing.T) {
	participants := make([]models.Participant, 0, 200)
	for i := 0; i < 200; i++ {
		participants = append(participants, models.Participant{Name: strings.Repeat("x", 20), Messages: 1})
	}
	stats := &models.ThreadStats{
		ThreadName:   strings.Repeat("t", 300),
		Participants: participants,
		TagNames:     []string{"Bug", "Resolved"},
	}

	embed := CreateStatsEmbed(stats, "", nil)
	assert.Equal(t, maxEmbedTitle, utf8.RuneCountInString(embed.Title))
	for _, f := range embed.Fields {
		assert.NotEmpty(t, f.Value)
		assert.LessOrEqual(t, utf8.RuneCountInString(f.Value), maxEmbedField)
		if f.Name == "Tags" {
			assert.Equal(t, "Bug, Resolved", f.Value)
		}
	}
}

func TestLockNotice(t *testing.T) {
	assert.Equal(t, "This thread was closed automatically after 15 days of inactivity.", LockNotice(15))
}
