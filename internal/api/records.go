package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cruisesync/internal/store"
	"cruisesync/internal/validate"
	"cruisesync/pkg/models"
)

type recordsHandler struct {
	store store.Store
	now   func() time.Time
}

func (h *recordsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/records/:kind", h.list) // GET /records/offers?limit=50&offset=0
	rg.GET("/quality", h.quality)
}

func (h *recordsHandler) list(c *gin.Context) {
	kind := models.Kind(c.Param("kind"))
	limit := parseInt(c.Query("limit"), 100)
	offset := parseInt(c.Query("offset"), 0)

	docs, err := h.store.ReadSnapshot(c.Request.Context(), kind)
	if errors.Is(err, store.ErrUnknownKind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read failed"})
		return
	}

	total := len(docs)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	items := make([]json.RawMessage, 0, end-offset)
	for _, d := range docs[offset:end] {
		items = append(items, d.Body)
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":   kind,
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

// quality scores every stored cruise, booked ones included.
func (h *recordsHandler) quality(c *gin.Context) {
	ctx := c.Request.Context()

	docs, err := h.store.ReadSnapshot(ctx, models.KindCruises)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read failed"})
		return
	}
	cruises, err := store.Decode[models.CanonicalCruise](docs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "decode failed"})
		return
	}

	docs, err = h.store.ReadSnapshot(ctx, models.KindBookedCruises)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read failed"})
		return
	}
	booked, err := store.Decode[models.BookedCruise](docs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "decode failed"})
		return
	}
	for _, b := range booked {
		cruises = append(cruises, b.CanonicalCruise)
	}

	c.JSON(http.StatusOK, validate.New(h.now()).Quality(cruises))
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
