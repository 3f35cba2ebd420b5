package models

import (
	"time"

	"gorm.io/gorm"
)

// Forum is a Discord forum channel and the tags its threads can carry.
type Forum struct {
	ID            string
	GuildID       string
	Name          string
	AvailableTags []Tag
}

// Thread is a snapshot of a forum post as reported by Discord.
type Thread struct {
	ID            string
	GuildID       string
	ForumID       string
	Name          string
	OwnerID       string
	LastMessageID string
	CreatedAt     time.Time
	Archived      bool
	Locked        bool
	AppliedTags   []Tag
}

// Tag is matched by Name; IDs are not stable across forums.
type Tag struct {
	ID   string
	Name string
}

type Message struct {
	ID         string
	AuthorID   string
	AuthorName string
	CreatedAt  time.Time
}

type User struct {
	ID   string
	Name string
}

// ThreadEdit holds the fields of a single thread edit. Nil fields are left unchanged.
type ThreadEdit struct {
	Name        *string
	Locked      *bool
	Archived    *bool
	AppliedTags *[]string
}

// AppliedTagIDs returns the IDs of the tags currently applied to the thread.
func (t *Thread) AppliedTagIDs() []string {
	ids := make([]string, 0, len(t.AppliedTags))
	for _, tag := range t.AppliedTags {
		ids = append(ids, tag.ID)
	}
	return ids
}

// ThreadClosure records that closing statistics were sent for a thread. A
// closure is identified by the thread and the last message seen before it was
// locked, so a thread reopened and closed again gets a new record.
type ThreadClosure struct {
	gorm.Model
	ThreadID         string    `gorm:"uniqueIndex:idx_thread_closure;size:32"` // The ID of the closed thread.
	LastMessageID    string    `gorm:"uniqueIndex:idx_thread_closure;size:32"` // The last message before the thread was locked.
	ForumID          string    `gorm:"index;size:32"`                          // The forum the thread belongs to.
	GuildID          string    `gorm:"size:32"`                                // The guild the forum belongs to.
	ThreadName       string    // The name of the thread after it was locked.
	ClosedAt         time.Time // The instant the thread was closed.
	ParticipantCount int       // Distinct authors in the history.
	MessageCount     int       // Messages in the history at close time.
	ReportChannelID  string    // The channel the report was sent to.
}
