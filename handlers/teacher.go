package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/NivethaMadhavan/Attendance/config"
	"github.com/NivethaMadhavan/Attendance/database"
	"github.com/NivethaMadhavan/Attendance/models"
	"github.com/NivethaMadhavan/Attendance/qr"
	"github.com/NivethaMadhavan/Attendance/sessions"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || strings.HasPrefix(origin, "http://localhost") {
			return true
		}
		return origin == "https://"+r.Host
	},
}

// Handler wires the attendance core to the HTTP surface.
type Handler struct {
	cfg      *config.Config
	registry *sessions.Registry
	store    *database.Store
	renderer *qr.Renderer
}

func New(cfg *config.Config, registry *sessions.Registry, store *database.Store, renderer *qr.Renderer) *Handler {
	return &Handler{cfg: cfg, registry: registry, store: store, renderer: renderer}
}

// Routes registers all endpoints on the router.
func (h *Handler) Routes(router *gin.Engine) {
	router.GET("/create-attendance-session", h.CreateSession)
	router.POST("/submit", h.Submit)
	router.GET("/sessions/:id/qr", h.CurrentQR)
	router.GET("/sessions/:id/attendance", h.ListAttendance)
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "OK"}) })
}

type tokenUpdate struct {
	token models.Token
	image []byte
}

// CreateSession upgrades to a WebSocket, opens an attendance session for the
// requested class and streams every rotated token (with its QR image) to the
// dashboard. The session closes when the dashboard disconnects.
func (h *Handler) CreateSession(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade to WebSocket")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to establish WebSocket connection"})
		return
	}
	defer conn.Close()

	class := c.Query("class")
	if class == "" {
		conn.WriteJSON(gin.H{"status": "error", "message": "class query parameter is required"})
		return
	}
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		sessionID = class
	}

	sess := h.registry.Open(sessionID)
	defer h.registry.CloseSession(sess)

	// Rotation ticks land on a buffered channel so the rotator never blocks
	// on a slow or gone dashboard; a missed frame is replaced by the next.
	updates := make(chan tokenUpdate, 4)
	sess.Notify(func(token models.Token, image []byte) {
		select {
		case updates <- tokenUpdate{token: token, image: image}:
		default:
		}
	})

	if err := h.sendToken(conn, sessionID, sess.CurrentToken(), nil); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("failed to send initial token")
		return
	}

	// Reader goroutine solely to detect disconnection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			log.Info().Str("session", sessionID).Msg("dashboard disconnected")
			return
		case u := <-updates:
			if err := h.sendToken(conn, sessionID, u.token, u.image); err != nil {
				log.Info().Err(err).Str("session", sessionID).Msg("dashboard write failed")
				return
			}
		}
	}
}

func (h *Handler) sendToken(conn *websocket.Conn, sessionID string, token models.Token, image []byte) error {
	if image == nil {
		var err error
		image, err = h.renderer.Render(sessionID, token)
		if err != nil {
			return err
		}
	}
	return conn.WriteJSON(gin.H{
		"sessionID": sessionID,
		"token":     token,
		"qr":        "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
	})
}

// CurrentQR serves the session's current QR image as a plain PNG, for
// displays that poll instead of holding a socket.
func (h *Handler) CurrentQR(c *gin.Context) {
	sess, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	png, err := h.renderer.Render(sess.ID, sess.CurrentToken())
	if err != nil {
		log.Error().Err(err).Str("session", sess.ID).Msg("failed to render QR")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ListAttendance returns the accepted records for a session.
func (h *Handler) ListAttendance(c *gin.Context) {
	records, err := h.store.ListAttendance(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Error().Err(err).Msg("failed to list attendance")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list attendance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionID": c.Param("id"), "records": records})
}
