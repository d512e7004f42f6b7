package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/evchen/snapfolio/internal/errors"
	"github.com/evchen/snapfolio/internal/models"
)

// Handler serves the sync API.
type Handler struct {
	cfg   Config
	store *Store
}

// NewHandler creates the API handler.
func NewHandler(cfg Config, store *Store) *Handler {
	return &Handler{cfg: cfg, store: store}
}

type tokenRequest struct {
	AccessKey string `json:"access_key"`
}

// Token exchanges a device access key for a bearer token.
func (h *Handler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID, ok := h.cfg.AccessKeys[strings.TrimSpace(req.AccessKey)]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown access key"})
		return
	}
	token, err := GenerateToken(userID, []byte(h.cfg.JWTSecret), h.cfg.TokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user_id": userID})
}

// EnsureUser creates the caller's account row if missing.
func (h *Handler) EnsureUser(c *gin.Context) {
	userID := UserIDFromContext(c)
	if err := h.store.EnsureUser(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ensure user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID})
}

// recordEnvelope is the slice of the client payload the service indexes.
// The full payload is stored verbatim.
type recordEnvelope struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Upsert creates or replaces one record.
func (h *Handler) Upsert(c *gin.Context) {
	col, ok := models.ParseCollection(c.Param("collection"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown collection"})
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	var envelope recordEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record payload"})
		return
	}
	if envelope.ID != c.Param("id") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload id does not match path"})
		return
	}
	if envelope.UpdatedAt.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "updated_at is required"})
		return
	}

	record := &Record{
		UserID:     UserIDFromContext(c),
		Collection: col.TableName(),
		ID:         envelope.ID,
		Name:       envelope.Name,
		Payload:    payload,
		UpdatedAt:  envelope.UpdatedAt,
	}
	if err := h.store.Upsert(c.Request.Context(), record); err != nil {
		if apperrors.Is(err, apperrors.ErrConstraint) {
			c.JSON(http.StatusConflict, gin.H{
				"code":  "unique_constraint_violation",
				"error": "record violates a uniqueness rule",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store record"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": record.ID})
}

// GetRecord returns one record's payload.
func (h *Handler) GetRecord(c *gin.Context) {
	col, ok := models.ParseCollection(c.Param("collection"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown collection"})
		return
	}
	record, err := h.store.Get(c.Request.Context(), UserIDFromContext(c), col.TableName(), c.Param("id"))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load record"})
		return
	}
	c.Data(http.StatusOK, "application/json", record.Payload)
}

// ListChanged returns the payloads of records modified strictly after the
// since bound.
func (h *Handler) ListChanged(c *gin.Context) {
	col, ok := models.ParseCollection(c.Param("collection"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown collection"})
		return
	}

	since := time.Unix(0, 0).UTC()
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since timestamp"})
			return
		}
		since = parsed
	}

	records, err := h.store.ChangedSince(c.Request.Context(), UserIDFromContext(c), col.TableName(), since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list records"})
		return
	}

	payloads := make([]json.RawMessage, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, record.Payload)
	}
	c.JSON(http.StatusOK, payloads)
}

// TagByName returns the caller's tag with the given name.
func (h *Handler) TagByName(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	record, err := h.store.GetTagByName(c.Request.Context(), UserIDFromContext(c), name)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tag"})
		return
	}
	c.Data(http.StatusOK, "application/json", record.Payload)
}

// Healthz reports service liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
