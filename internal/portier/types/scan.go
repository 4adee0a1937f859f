package types

import "time"

// Decision is the literal string published back to the scanner.
type Decision string

const (
	DecisionPermit Decision = "PERMIT"
	DecisionDeny   Decision = "DENY"
)

// ScanMessage is one inbound hardware scan: a tag presented at a scanner.
// ScannedAt is the instant reported by the scanner's clock, not the time
// the server processed the message.
type ScanMessage struct {
	ScannerUID string
	TagUID     string
	ScannedAt  time.Time
}

// ScanEvent is one row of the append-only audit log.  UserID is nil when
// the presented tag had no owner.
type ScanEvent struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	ScannerID int64     `json:"scanner_id"`
	Decision  Decision  `json:"decision"`
	ScannedAt time.Time `json:"scanned_at"`
}
