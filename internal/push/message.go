package push

import "time"

// Message is the notification payload delivered to subscribed devices.
type Message struct {
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Sound  string    `json:"sound"`
	Topic  string    `json:"topic"`
	SentAt time.Time `json:"sent_at"`
}
