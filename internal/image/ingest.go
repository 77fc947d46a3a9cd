package image

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abduss/homelist/internal/metrics"
	"go.uber.org/zap"
)

const (
	tokenBytes      = 8 // 16 hex chars
	maxNameAttempts = 3
)

// Ingester validates image payloads, decodes them and writes them to a Store.
type Ingester struct {
	store    Store
	maxBytes int64
	log      *zap.Logger
	nowFunc  func() time.Time
	random   io.Reader
}

// NewIngester constructs an Ingester. A non-positive maxBytes selects DefaultMaxBytes.
func NewIngester(store Store, maxBytes int64, log *zap.Logger) *Ingester {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingester{
		store:    store,
		maxBytes: maxBytes,
		log:      log,
		nowFunc:  time.Now,
		random:   rand.Reader,
	}
}

// Ingest processes one payload. Every failure, including decode and write
// errors, is reported in the result rather than returned.
func (i *Ingester) Ingest(ctx context.Context, p Payload) ItemResult {
	if problems := validate(p, i.maxBytes); len(problems) > 0 {
		metrics.ImagesIngested.WithLabelValues("invalid").Inc()
		return ItemResult{Errors: problems}
	}

	data, err := decode(p.Data)
	if err != nil {
		metrics.ImagesIngested.WithLabelValues("invalid").Inc()
		return ItemResult{Errors: []string{"image data is not valid base64"}}
	}
	if len(data) == 0 {
		metrics.ImagesIngested.WithLabelValues("invalid").Inc()
		return ItemResult{Errors: []string{"image data is empty"}}
	}
	if int64(len(data)) > i.maxBytes {
		metrics.ImagesIngested.WithLabelValues("invalid").Inc()
		return ItemResult{Errors: []string{fmt.Sprintf("decoded image size %d exceeds limit of %d bytes", len(data), i.maxBytes)}}
	}

	contentType := normalizeType(p.Type)
	ext := extensionFor(p.Name, contentType)

	var (
		filename string
		location string
	)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		filename, err = i.newFilename(ext)
		if err != nil {
			break
		}
		location, err = i.store.Put(ctx, filename, data, contentType)
		if !errors.Is(err, ErrExists) {
			break
		}
	}
	if err != nil {
		metrics.ImagesIngested.WithLabelValues("error").Inc()
		i.log.Error("store image", zap.String("name", p.Name), zap.Error(err))
		return ItemResult{Errors: []string{"failed to store image"}}
	}

	metrics.ImagesIngested.WithLabelValues("stored").Inc()
	return ItemResult{
		Success: true,
		Asset: &Asset{
			Filename:     filename,
			OriginalName: p.Name,
			Size:         int64(len(data)),
			Path:         location,
			ContentType:  contentType,
		},
	}
}

// IngestBatch processes payloads sequentially in input order. Every item is
// attempted even after a failure; Success is true only if all items were stored.
func (i *Ingester) IngestBatch(ctx context.Context, payloads []Payload) BatchResult {
	result := BatchResult{
		Success:   true,
		Processed: make([]ItemResult, 0, len(payloads)),
		Errors:    []ItemError{},
	}

	for idx, p := range payloads {
		item := i.Ingest(ctx, p)
		item.Index = idx
		result.Processed = append(result.Processed, item)
		if !item.Success {
			result.Success = false
			result.Errors = append(result.Errors, ItemError{
				Index:  idx,
				Name:   p.Name,
				Errors: item.Errors,
			})
		}
	}

	if !result.Success {
		i.log.Info("image batch rejected",
			zap.Int("images", len(payloads)),
			zap.Int("failed", len(result.Errors)),
		)
	}
	return result
}

// Discard removes stored assets, used when the owning listing is not committed.
// Removal is best effort; failures are logged and left to the sweeper.
func (i *Ingester) Discard(ctx context.Context, assets []Asset) {
	for _, a := range assets {
		if err := i.store.Remove(ctx, a.Filename); err != nil {
			i.log.Warn("discard image", zap.String("filename", a.Filename), zap.Error(err))
		}
	}
}

// newFilename builds "<unix-millis>_<16 hex chars><ext>".
func (i *Ingester) newFilename(ext string) (string, error) {
	token := make([]byte, tokenBytes)
	if _, err := io.ReadFull(i.random, token); err != nil {
		return "", fmt.Errorf("generate image token: %w", err)
	}
	return fmt.Sprintf("%d_%s%s", i.nowFunc().UnixMilli(), hex.EncodeToString(token), ext), nil
}

func decode(data string) ([]byte, error) {
	raw := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, stripDataURI(data))
	return base64.StdEncoding.DecodeString(raw)
}
