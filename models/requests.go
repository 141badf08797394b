package models

// SubmitRequest is the body of POST /submit. The token and timestamp are
// round-tripped from the scanned QR URL by the student's browser. Timestamp is
// a string to avoid overflow in clients that treat it as a 32-bit number.
type SubmitRequest struct {
	Session     string `json:"session" form:"session" binding:"required"`
	Token       string `json:"token" form:"qrcode" binding:"required"`
	Timestamp   string `json:"timestamp" form:"timestamp"`
	Fingerprint string `json:"browserFingerprint" form:"browserFingerprint"`
	Name        string `json:"name" form:"name" binding:"required"`
	SRN         string `json:"SRN" form:"SRN"`
	Note        string `json:"note" form:"note"`
}
