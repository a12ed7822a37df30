package store

import (
	"encoding/json"
	"fmt"
)

// Channel is the NOTIFY channel the document triggers publish on.
const Channel = "dentalflow_events"

const (
	CollectionAppointments = "appointments"
	CollectionMail         = "mail"

	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
)

// Event is a document write observed by the trigger worker. State is the
// delivery state the write left on a mail document, empty for appointments.
type Event struct {
	Collection string `json:"collection"`
	Op         string `json:"op"`
	ID         string `json:"id"`
	State      string `json:"state,omitempty"`
	TxID       int64  `json:"txid"`
}

// Key identifies one write of one document.
func (e Event) Key() string {
	return fmt.Sprintf("%s:%s:%s:%d", e.Collection, e.Op, e.ID, e.TxID)
}

func ParseEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("store: decode event: %w", err)
	}
	if ev.Collection == "" || ev.ID == "" {
		return Event{}, fmt.Errorf("store: incomplete event %q", payload)
	}
	return ev, nil
}
