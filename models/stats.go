package models

import "time"

// ParticipationSummary maps an author display name to the number of messages
// that author wrote in a thread.
type ParticipationSummary map[string]int

// Total returns the sum of all message counts.
func (p ParticipationSummary) Total() int {
	total := 0
	for _, count := range p {
		total += count
	}
	return total
}

type Participant struct {
	Name     string
	Messages int
}

// ThreadStats describes a thread's full history at the moment it was closed.
type ThreadStats struct {
	ThreadID         string
	ThreadName       string
	GuildID          string
	OwnerName        string
	OwnerID          string
	OpenedAt         time.Time
	ClosedAt         time.Time
	Duration         string
	Summary          ParticipationSummary
	Participants     []Participant // Sorted by message count, then name.
	ParticipantCount int
	MessageCount     int
	TagNames         []string
}

// ClosureSummary aggregates the closure ledger for the HTTP API.
type ClosureSummary struct {
	TotalClosures       int       `json:"total_closures"`
	ClosuresLast24Hours int       `json:"closures_last_24_hours"`
	TotalMessages       int       `json:"total_messages"`
	AverageMessages     float64   `json:"average_messages"`
	GeneratedAt         time.Time `json:"generated_at"`
}
