package models

import (
	"encoding/json"
	"time"
)

// Studio is an organizer identity. Its owner is the current organizer of
// every competition created under it.
type Studio struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompetitionRecord is the persisted read model of a competition
type CompetitionRecord struct {
	ID          string          `json:"id"`
	StudioID    string          `json:"studio_id"`
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Status      string          `json:"status"`
	EndTime     *time.Time      `json:"end_time,omitempty"`
	TicketsSold uint64          `json:"tickets_sold"`
	View        json.RawMessage `json:"view"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// EventRecord is one entry in a competition's event journal
type EventRecord struct {
	ID            int64           `json:"id"`
	EventID       string          `json:"event_id"`
	CompetitionID string          `json:"competition_id"`
	Seq           uint64          `json:"seq"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	At            time.Time       `json:"at"`
}

// Stats summarizes stored data
type Stats struct {
	Studios      int            `json:"studios"`
	Competitions int            `json:"competitions"`
	ByStatus     map[string]int `json:"by_status"`
	TicketsSold  uint64         `json:"tickets_sold"`
	Events       int            `json:"events"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
