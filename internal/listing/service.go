package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/abduss/homelist/internal/image"
	"go.uber.org/zap"
)

// imageIngester is the part of the ingestion pipeline the service depends on.
type imageIngester interface {
	IngestBatch(ctx context.Context, payloads []image.Payload) image.BatchResult
	Discard(ctx context.Context, assets []image.Asset)
}

// Service coordinates image ingestion and the record store.
type Service struct {
	store  Store
	images imageIngester
	log    *zap.Logger
}

// NewService wires the listing service.
func NewService(store Store, images imageIngester, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, images: images, log: log}
}

// CreateInput is a new listing submission.
type CreateInput struct {
	Attributes map[string]any
	Images     []image.Payload
}

// UpdateInput is a partial update. Images are ingested and replace the current
// list only when ReplaceImages is set; an empty list clears it.
type UpdateInput struct {
	Attributes    map[string]any
	Images        []image.Payload
	ReplaceImages bool
}

// CreateRecord ingests the images and then persists the listing. Nothing is
// persisted unless every image was stored, and stored images are discarded
// when the listing is not committed.
func (s *Service) CreateRecord(ctx context.Context, in CreateInput) (Record, error) {
	if err := validateAttributes(in.Attributes); err != nil {
		return Record{}, err
	}

	assets, err := s.ingest(ctx, in.Images)
	if err != nil {
		return Record{}, err
	}

	rec, err := s.store.Create(ctx, in.Attributes, assets)
	if err != nil {
		s.images.Discard(context.WithoutCancel(ctx), assets)
		s.log.Error("create listing", zap.Int("images", len(assets)), zap.Error(err))
		return Record{}, fmt.Errorf("create listing: %w", err)
	}

	s.log.Info("listing created", zap.String("id", rec.ID), zap.Int("images", len(rec.Images)))
	return rec, nil
}

func (s *Service) GetRecord(ctx context.Context, id string) (Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get listing: %w", err)
	}
	return rec, nil
}

// ListRecords returns the listings matching f in insertion order.
func (s *Service) ListRecords(ctx context.Context, f Filter) ([]Record, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return Apply(records, f), nil
}

// UpdateRecord shallow-merges the attributes over the listing. Unknown ids are
// rejected before any image is ingested.
func (s *Service) UpdateRecord(ctx context.Context, id string, in UpdateInput) (Record, error) {
	if err := validateAttributes(in.Attributes); err != nil {
		return Record{}, err
	}
	if _, err := s.GetRecord(ctx, id); err != nil {
		return Record{}, err
	}

	patch := Patch{Attributes: in.Attributes, ReplaceImages: in.ReplaceImages}
	if in.ReplaceImages {
		assets, err := s.ingest(ctx, in.Images)
		if err != nil {
			return Record{}, err
		}
		patch.Images = assets
	}

	rec, err := s.store.Update(ctx, id, patch)
	if err != nil {
		s.images.Discard(context.WithoutCancel(ctx), patch.Images)
		if errors.Is(err, ErrNotFound) {
			return Record{}, ErrNotFound
		}
		s.log.Error("update listing", zap.String("id", id), zap.Error(err))
		return Record{}, fmt.Errorf("update listing: %w", err)
	}
	return rec, nil
}

// DeleteRecord reports whether a listing was removed. Image files are left
// to the sweeper.
func (s *Service) DeleteRecord(ctx context.Context, id string) (bool, error) {
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		s.log.Error("delete listing", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("delete listing: %w", err)
	}
	return removed, nil
}

// ReferencedImages returns the filenames referenced by any listing.
func (s *Service) ReferencedImages(ctx context.Context) (map[string]struct{}, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect image references: %w", err)
	}
	refs := make(map[string]struct{})
	for _, r := range records {
		for _, a := range r.Images {
			refs[a.Filename] = struct{}{}
		}
	}
	return refs, nil
}

// Ready reports whether the collection can be loaded.
func (s *Service) Ready(ctx context.Context) error {
	_, err := s.store.List(ctx)
	return err
}

func (s *Service) ingest(ctx context.Context, payloads []image.Payload) ([]image.Asset, error) {
	if len(payloads) == 0 {
		return []image.Asset{}, nil
	}
	batch := s.images.IngestBatch(ctx, payloads)
	if !batch.Success {
		s.images.Discard(context.WithoutCancel(ctx), batch.Assets())
		return nil, &ValidationError{Images: batch.Errors}
	}
	return batch.Assets(), nil
}

// validateAttributes checks the types of the fields the filter reads.
func validateAttributes(attrs map[string]any) error {
	var problems []string
	for _, key := range []string{AttrCategory, AttrLocation} {
		if v, ok := attrs[key]; ok && v != nil {
			if _, isText := v.(string); !isText {
				problems = append(problems, key+" must be a string")
			}
		}
	}
	for _, key := range []string{AttrPrice, AttrBedrooms, AttrBathrooms} {
		if v, ok := attrs[key]; ok && v != nil {
			n, isNumber := toNumber(v)
			if !isNumber || n < 0 {
				problems = append(problems, key+" must be a non-negative number")
			}
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Fields: problems}
	}
	return nil
}
