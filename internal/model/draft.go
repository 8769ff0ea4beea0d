package model

// OutreachDraft is the AI-drafted email content for one prospect. Drafts are
// produced per preview-or-send cycle and cached keyed by prospect id for the
// immediately following send.
type OutreachDraft struct {
	ProspectID   string   `json:"prospect_id"`
	Subject      string   `json:"subject"`
	Intro        string   `json:"intro"`
	BulletPoints []string `json:"bullet_points"`
	Closing      string   `json:"closing"`
}

// DeliveryStatus is the per-recipient outcome of a send.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// DeliveryLogEntry records one outbound send attempt.
type DeliveryLogEntry struct {
	ProspectID string         `json:"prospect_id"`
	Email      string         `json:"email"`
	Status     DeliveryStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
}

// ItemFailure pairs a failed input item with the reason it failed. Aggregate
// operations keep these instead of a bare count so callers can see what broke.
type ItemFailure struct {
	Item   string `json:"item"`
	Reason string `json:"reason"`
}
