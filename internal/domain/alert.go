package domain

import "time"

// AlertRecord tracks dispatch history for one deduplication key. Owned by the
// alert dispatcher's rate-limit table and mutated on every send attempt.
type AlertRecord struct {
	AlertKey    string    `json:"alert_key"`
	Severity    string    `json:"severity"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSentAt  time.Time `json:"last_sent_at"`
	SendCount   int64     `json:"send_count"`
}

// DispatchResult reports the per-channel outcome of one alert send.
type DispatchResult struct {
	AlertKey   string   `json:"alert_key"`
	Suppressed bool     `json:"suppressed"`
	Sent       []string `json:"sent"`
	Failed     []string `json:"failed"`
}
