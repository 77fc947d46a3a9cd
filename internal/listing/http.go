package listing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/abduss/homelist/internal/image"
	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 64 << 20

// RegisterRoutes mounts listing operations under the provided router group.
// guard, when non-nil, protects the mutating routes.
func RegisterRoutes(group *gin.RouterGroup, service *Service, guard gin.HandlerFunc) {
	handler := &httpHandler{service: service}

	write := []gin.HandlerFunc{}
	if guard != nil {
		write = append(write, guard)
	}

	group.GET("/listings", handler.listListings)
	group.GET("/listings/:id", handler.getListing)
	group.POST("/listings", append(write, handler.createListing)...)
	group.PATCH("/listings/:id", append(write, handler.updateListing)...)
	group.PUT("/listings/:id", append(write, handler.updateListing)...)
	group.DELETE("/listings/:id", append(write, handler.deleteListing)...)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) createListing(c *gin.Context) {
	attrs, images, _, err := readSubmission(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.service.CreateRecord(c.Request.Context(), CreateInput{Attributes: attrs, Images: images})
	if err != nil {
		writeError(c, err, "failed to create listing")
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *httpHandler) listListings(c *gin.Context) {
	filter, err := ParseFilter(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.service.ListRecords(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err, "failed to list listings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": records, "count": len(records)})
}

func (h *httpHandler) getListing(c *gin.Context) {
	rec, err := h.service.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to load listing")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *httpHandler) updateListing(c *gin.Context) {
	attrs, images, hasImages, err := readSubmission(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.service.UpdateRecord(c.Request.Context(), c.Param("id"), UpdateInput{
		Attributes:    attrs,
		Images:        images,
		ReplaceImages: hasImages,
	})
	if err != nil {
		writeError(c, err, "failed to update listing")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *httpHandler) deleteListing(c *gin.Context) {
	removed, err := h.service.DeleteRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete listing"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

var (
	errBodyNotObject = errors.New("request body must be a JSON object")
	errBadImages     = errors.New("images must be an array of {name, type, data, size}")
)

// readSubmission splits a flat listing body into attributes and image payloads.
func readSubmission(c *gin.Context) (map[string]any, []image.Payload, bool, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, false, errors.New("request body too large or unreadable")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, nil, false, errBodyNotObject
	}

	var (
		images    []image.Payload
		hasImages bool
	)
	if v, ok := raw[keyImages]; ok {
		hasImages = true
		if string(v) != "null" {
			if err := json.Unmarshal(v, &images); err != nil {
				return nil, nil, false, errBadImages
			}
		}
		delete(raw, keyImages)
	}

	attrs := make(map[string]any, len(raw))
	for k, v := range raw {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, nil, false, errBodyNotObject
		}
		attrs[k] = val
	}
	return attrs, images, hasImages, nil
}

func writeError(c *gin.Context, err error, fallback string) {
	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		body := gin.H{"error": "invalid listing"}
		if len(validation.Fields) > 0 {
			body["fields"] = validation.Fields
		}
		if len(validation.Images) > 0 {
			body["images"] = validation.Images
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
