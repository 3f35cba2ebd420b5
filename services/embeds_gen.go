package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/bradselph/ThreadWarden/models"
	"github.com/bwmarrin/discordgo"
)

const (
	statsDateFormat  = "02.01.2006 - 15:04"
	maxEmbedTitle    = 256
	maxEmbedField    = 1024
	statsEmbedColour = 0xFFFF00
)

// CreateStatsEmbed renders closing statistics. Field order is fixed.
func CreateStatsEmbed(stats *models.ThreadStats, lockedMarker string, loc *time.Location) *discordgo.MessageEmbed {
	if loc == nil {
		loc = time.UTC
	}

	participants := make([]string, 0, len(stats.Participants))
	for _, p := range stats.Participants {
		participants = append(participants, fmt.Sprintf("%s - %d messages", p.Name, p.Messages))
	}

	tags := "No tags"
	if len(stats.TagNames) > 0 {
		tags = strings.Join(stats.TagNames, ", ")
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Opened", Value: formatStatsDate(stats.OpenedAt, loc)},
		{Name: "Closed", Value: formatStatsDate(stats.ClosedAt, loc)},
		{Name: "Duration", Value: stats.Duration},
		{Name: "Creator", Value: fmt.Sprintf("%s (ID: %s)", stats.OwnerName, stats.OwnerID)},
		{Name: "Participant count", Value: fmt.Sprintf("%d", stats.ParticipantCount)},
		{Name: "Message count", Value: fmt.Sprintf("%d", stats.MessageCount)},
		{Name: "Participants", Value: strings.Join(participants, "\n")},
		{Name: "Tags", Value: tags},
	}
	for _, f := range fields {
		f.Inline = true
		if f.Value == "" {
			f.Value = "-"
		}
		f.Value = truncateRunes(f.Value, maxEmbedField)
	}

	return &discordgo.MessageEmbed{
		Title:       truncateRunes(fmt.Sprintf("%sThread statistics `%s`", lockedMarker, stats.ThreadName), maxEmbedTitle),
		Description: "Statistics for the closed thread.",
		URL:         ThreadURL(stats.GuildID, stats.ThreadID),
		Color:       statsEmbedColour,
		Fields:      fields,
		Timestamp:   stats.ClosedAt.UTC().Format(time.RFC3339),
	}
}

func ThreadURL(guildID, threadID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s", guildID, threadID)
}

func formatStatsDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return unknownOwner
	}
	return t.In(loc).Format(statsDateFormat)
}

// LockNotice is posted into a thread right after it is locked.
func LockNotice(inactiveDays int) string {
	return fmt.Sprintf("This thread was closed automatically after %d days of inactivity.", inactiveDays)
}
