package models

// Token is the rotating value proving a QR code was displayed during a
// specific window. Values are compared as strings everywhere; counter-mode
// tokens are decimal integers rendered to strings.
type Token struct {
	Value    string `json:"value"`
	IssuedAt int64  `json:"issuedAt"` // unix milliseconds
}

// Claim is what a student device presents: the token read out of the scanned
// QR URL, the issuance timestamp the page carried, a device identity, and the
// attendance payload. The payload is opaque to validation and is forwarded to
// persistence as-is.
type Claim struct {
	Token     string  `json:"token"`
	Timestamp int64   `json:"timestamp,omitempty"` // unix milliseconds, 0 when absent
	DeviceID  string  `json:"deviceID"`
	Payload   Payload `json:"payload"`
}

// Payload carries the attendance fields themselves.
type Payload struct {
	Name string `json:"name"`
	SRN  string `json:"SRN"`
	Note string `json:"note,omitempty"`
}

// Outcome classifies a submission attempt.
type Outcome int

const (
	Accepted Outcome = iota
	RejectedMalformed
	RejectedTokenMismatch
	RejectedExpired
	RejectedDuplicateDevice
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case RejectedMalformed:
		return "malformed"
	case RejectedTokenMismatch:
		return "token mismatch"
	case RejectedExpired:
		return "expired"
	case RejectedDuplicateDevice:
		return "duplicate device"
	}
	return "unknown"
}
