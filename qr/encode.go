// Package qr renders attendance tokens as scannable QR images and parses the
// payload URLs back out of submitted scans.
package qr

import (
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/NivethaMadhavan/Attendance/models"
)

const imageSize = 256

// Renderer builds submission URLs around a fixed base and encodes them as PNG
// QR codes. It implements sessions.Renderer.
type Renderer struct {
	baseURL string
}

// NewRenderer creates a renderer. baseURL is the submit endpoint the student's
// browser will load, without query string.
func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "?&")}
}

// PayloadURL composes the URL embedded in the QR image. The random component
// appended to the timestamp keeps two codes for the same token visually
// distinct so a photographed code cannot be mistaken for a live one.
func (r *Renderer) PayloadURL(sessionID string, token models.Token) string {
	return fmt.Sprintf("%s?qrcode=%s&timestamp=%d_%d&session=%s",
		r.baseURL, url.QueryEscape(token.Value), token.IssuedAt, rand.Intn(1000), url.QueryEscape(sessionID))
}

// Render encodes the payload URL as a PNG with high error correction.
func (r *Renderer) Render(sessionID string, token models.Token) ([]byte, error) {
	png, err := qrcode.Encode(r.PayloadURL(sessionID, token), qrcode.High, imageSize)
	if err != nil {
		return nil, errors.Wrap(err, "encode qr image")
	}
	return png, nil
}

// ParsePayload extracts the claim skeleton from a scanned payload URL: the
// token value, its issuance timestamp and the session ID.
func ParsePayload(rawURL string) (token string, timestamp int64, sessionID string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, "", errors.Wrap(err, "parse qr payload")
	}
	q := u.Query()
	token = q.Get("qrcode")
	if token == "" {
		return "", 0, "", errors.New("qr payload missing qrcode parameter")
	}
	timestamp, err = ParseTimestamp(q.Get("timestamp"))
	if err != nil {
		return "", 0, "", err
	}
	return token, timestamp, q.Get("session"), nil
}

// ParseTimestamp parses the "<unixMs>_<random>" timestamp form carried in QR
// payloads. A bare millisecond value is also accepted; empty input yields 0.
func ParseTimestamp(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	ms := raw
	if i := strings.IndexByte(raw, '_'); i >= 0 {
		ms = raw[:i]
	}
	ts, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse qr timestamp %q", raw)
	}
	return ts, nil
}
