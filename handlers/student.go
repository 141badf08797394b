package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/NivethaMadhavan/Attendance/config"
	"github.com/NivethaMadhavan/Attendance/models"
	"github.com/NivethaMadhavan/Attendance/qr"
	"github.com/NivethaMadhavan/Attendance/sessions"
)

// Submit accepts a student's claim (form or JSON), resolves the device
// identity per configuration and runs it through the validator. Outcomes map
// to statuses: accepted 200, malformed 400, mismatch/expired 401, duplicate
// 409, storage trouble 500 (retryable).
func (h *Handler) Submit(c *gin.Context) {
	var req models.SubmitRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Form submission rejected"})
		return
	}

	timestamp, err := qr.ParseTimestamp(req.Timestamp)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Form submission rejected"})
		return
	}

	claim := models.Claim{
		Token:     req.Token,
		Timestamp: timestamp,
		DeviceID:  h.deviceIdentity(c, req),
		Payload: models.Payload{
			Name: req.Name,
			SRN:  req.SRN,
			Note: req.Note,
		},
	}

	outcome, err := h.registry.Submit(c.Request.Context(), req.Session, claim)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "No such attendance session"})
			return
		}
		log.Error().Err(err).Str("session", req.Session).Msg("submission failed")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Attendance could not be recorded, please try again"})
		return
	}

	switch outcome {
	case models.Accepted:
		c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "Attendance marked successfully"})
	case models.RejectedMalformed:
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Form submission rejected"})
	case models.RejectedDuplicateDevice:
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "This device has already marked attendance for this session"})
	default: // mismatch or expired: the student must re-scan
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Rejected, please scan the current QR code"})
	}
}

// deviceIdentity picks the duplicate-suppression key. Neither source is
// cryptographically strong: a fingerprint trusts the client, an IP collapses
// behind shared networks.
func (h *Handler) deviceIdentity(c *gin.Context, req models.SubmitRequest) string {
	if h.cfg.IdentitySource == config.IdentityIP {
		return c.ClientIP()
	}
	return req.Fingerprint
}
