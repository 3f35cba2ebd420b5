package platform

import (
	"github.com/bradselph/ThreadWarden/models"
	"github.com/bwmarrin/discordgo"
)

func ForumFromChannel(ch *discordgo.Channel) *models.Forum {
	tags := make([]models.Tag, 0, len(ch.AvailableTags))
	for _, t := range ch.AvailableTags {
		tags = append(tags, models.Tag{ID: t.ID, Name: t.Name})
	}
	return &models.Forum{
		ID:            ch.ID,
		GuildID:       ch.GuildID,
		Name:          ch.Name,
		AvailableTags: tags,
	}
}

// ThreadFromChannel converts a thread channel. Applied tag IDs are resolved to
// names through available; unknown IDs keep an empty name.
func ThreadFromChannel(ch *discordgo.Channel, available []models.Tag) *models.Thread {
	names := make(map[string]string, len(available))
	for _, t := range available {
		names[t.ID] = t.Name
	}

	applied := make([]models.Tag, 0, len(ch.AppliedTags))
	for _, id := range ch.AppliedTags {
		applied = append(applied, models.Tag{ID: id, Name: names[id]})
	}

	thread := &models.Thread{
		ID:            ch.ID,
		GuildID:       ch.GuildID,
		ForumID:       ch.ParentID,
		Name:          ch.Name,
		OwnerID:       ch.OwnerID,
		LastMessageID: ch.LastMessageID,
		AppliedTags:   applied,
	}
	if created, err := discordgo.SnowflakeTimestamp(ch.ID); err == nil {
		thread.CreatedAt = created
	}
	if ch.ThreadMetadata != nil {
		thread.Archived = ch.ThreadMetadata.Archived
		thread.Locked = ch.ThreadMetadata.Locked
	}
	return thread
}

func MessageFromDiscord(m *discordgo.Message) *models.Message {
	msg := &models.Message{
		ID:        m.ID,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
	}
	return msg
}
