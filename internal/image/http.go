package image

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// URLSigner issues temporary download URLs for objects in a bucket.
type URLSigner interface {
	GenerateGetURL(ctx context.Context, bucket, object string) (string, error)
}

// RegisterRoutes mounts image download under the provided router group.
// Disk-backed images are streamed; MinIO-backed images redirect to a presigned URL.
func RegisterRoutes(group *gin.RouterGroup, store Store, signer URLSigner) {
	handler := &httpHandler{store: store, signer: signer}
	group.GET("/images/:filename", handler.getImage)
}

type httpHandler struct {
	store  Store
	signer URLSigner
}

func (h *httpHandler) getImage(c *gin.Context) {
	name := c.Param("filename")
	if err := checkName(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image name"})
		return
	}

	switch store := h.store.(type) {
	case *DiskStore:
		h.streamFromDisk(c, store, name)
	case *MinIOStore:
		h.redirectToObject(c, store, name)
	default:
		c.JSON(http.StatusNotImplemented, gin.H{"error": "image download not supported by this backend"})
	}
}

func (h *httpHandler) streamFromDisk(c *gin.Context, store *DiskStore, name string) {
	f, err := store.Open(name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, f, map[string]string{
		"Cache-Control": "public, max-age=31536000, immutable",
	})
}

func (h *httpHandler) redirectToObject(c *gin.Context, store *MinIOStore, name string) {
	if h.signer == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "image download not configured"})
		return
	}
	u, err := h.signer.GenerateGetURL(c.Request.Context(), store.Bucket(), store.Key(name))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign image url"})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, u)
}
