package core

// EventType represents the type of change in the site.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a post in the site.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}
