// package sift sequences the ingestion pipeline: quota check, scrape,
// metadata fallback, synthesis, rehost, persist. Every enrichment stage is
// allowed to fail; the pipeline always ends with a persisted record unless
// persistence itself fails twice.
package sift

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"thirdcoast.systems/sift/internal/db"
	"thirdcoast.systems/sift/pkg/metascrape"
	"thirdcoast.systems/sift/pkg/platform"
	"thirdcoast.systems/sift/pkg/scrape"
	"thirdcoast.systems/sift/pkg/synth"
)

// ErrMissingInput is returned when a request has neither URL nor image.
var ErrMissingInput = errors.New("url or image is required")

// Scraper runs the external scrape actor for a strategy.
type Scraper interface {
	Configured() bool
	Run(ctx context.Context, strategy platform.Strategy) (*scrape.Item, error)
}

// MetaFetcher extracts page metadata directly from HTML.
type MetaFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*metascrape.Meta, error)
}

// Synthesizer produces structured output from evidence or an image.
type Synthesizer interface {
	Configured() bool
	SynthesizeText(ctx context.Context, ev synth.Evidence) (*synth.Result, error)
	SynthesizeImage(ctx context.Context, imageBase64 string) (*synth.Result, error)
}

// Rehoster copies images into owned storage.
type Rehoster interface {
	Configured() bool
	Owned(rawURL string) bool
	RehostURL(ctx context.Context, srcURL string) (string, error)
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// Store is the persistence slice of db.Queries the pipeline needs.
type Store interface {
	InsertSift(ctx context.Context, id *uuid.UUID, p *db.SiftParams) (*db.Sift, error)
	UpdateSift(ctx context.Context, id pgtype.UUID, p *db.SiftParams) (*db.Sift, error)
	CountSiftsByOwner(ctx context.Context, ownerID string) (int64, error)
}

// Request is one submission into the pipeline.
type Request struct {
	URL         string
	ImageBase64 string
	OwnerID     string
	// ExistingID is the client's optimistic placeholder id; when set the
	// pipeline updates that row in place instead of inserting.
	ExistingID string
	Tier       string
}

type Orchestrator struct {
	store    Store
	scraper  Scraper
	meta     MetaFetcher
	synth    Synthesizer
	rehoster Rehoster
	quota    Quota
}

func New(store Store, scraper Scraper, meta MetaFetcher, synthesizer Synthesizer, rehoster Rehoster, quota Quota) *Orchestrator {
	return &Orchestrator{
		store:    store,
		scraper:  scraper,
		meta:     meta,
		synth:    synthesizer,
		rehoster: rehoster,
		quota:    quota,
	}
}

// PerformFullSift runs the full pipeline for one submission. It returns a
// persisted record on every path except three: missing input, quota
// exceeded, and the double persistence failure.
func (o *Orchestrator) PerformFullSift(ctx context.Context, req Request) (*db.Sift, error) {
	if req.URL == "" && req.ImageBase64 == "" {
		return nil, ErrMissingInput
	}

	var trace Trace

	// Quota gate: reject before any external cost. A failing count query
	// degrades open rather than blocking the save.
	if !o.quota.Unlimited(req.Tier) {
		count, err := o.store.CountSiftsByOwner(ctx, req.OwnerID)
		switch {
		case err != nil:
			trace.Fail(StageQuota, err)
		case count >= o.quota.MaxFor(req.Tier):
			return nil, &QuotaError{Limit: o.quota.MaxFor(req.Tier), UpgradeURL: o.quota.UpgradeURL}
		}
	}

	strategy := platform.Classify(req.URL)
	domain := strategy.Domain

	sourceURL := req.URL
	if sourceURL == "" {
		sourceURL = fmt.Sprintf("image-scan://%d", time.Now().UnixMilli())
	}

	// SCRAPE
	var evidence synth.Evidence
	evidence.URL = req.URL
	var coverCandidate string
	if strategy.ActorID != "" && o.scraper != nil && o.scraper.Configured() {
		item, err := o.scraper.Run(ctx, strategy)
		if err != nil {
			trace.Fail(StageScrape, err)
		} else if !item.Empty() {
			evidence.Title = item.Title
			evidence.Description = item.Description
			evidence.Transcript = item.Transcript
			coverCandidate = item.ImageURL
		} else {
			trace.Addf("%s: no usable result", StageScrape)
		}
	}

	// META_FALLBACK: only when scraping left us without a title.
	if evidence.Title == "" && req.URL != "" && o.meta != nil {
		meta, err := o.meta.Fetch(ctx, req.URL)
		if err != nil {
			trace.Fail(StageMeta, err)
		} else if !meta.Empty() {
			evidence.Title = meta.Title
			if evidence.Description == "" {
				evidence.Description = meta.Description
			}
			if coverCandidate == "" {
				coverCandidate = meta.ImageURL
			}
			evidence.Keywords = meta.Keywords
		}
	}

	// Pre-AI defaults. Synthesis may improve on these but never erases them.
	title := evidence.Title
	if title == "" {
		title = "Saved from " + domain
	}
	summary := evidence.Description
	category := "Other"
	tags := []string{"Link"}
	extras := map[string]any{}

	// Submitted images are persisted to owned storage before synthesis so
	// the record keeps its cover even when the model call fails.
	var coverURL *string
	if req.ImageBase64 != "" && o.rehoster != nil && o.rehoster.Configured() {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			trace.Fail(StageSubmitImg, err)
		} else if hosted, err := o.rehoster.Upload(ctx, data, ""); err != nil {
			trace.Fail(StageSubmitImg, err)
		} else {
			coverURL = &hosted
		}
	}

	// SYNTHESIZE
	if o.synth != nil && o.synth.Configured() && (req.ImageBase64 != "" || !evidence.Empty()) {
		var result *synth.Result
		var err error
		if req.ImageBase64 != "" {
			result, err = o.synth.SynthesizeImage(ctx, req.ImageBase64)
		} else {
			result, err = o.synth.SynthesizeText(ctx, evidence)
		}
		if err != nil {
			trace.Fail(StageSynth, err)
		} else {
			if result.Title != "" {
				title = result.Title
			}
			if result.Summary != "" {
				summary = result.Summary
			}
			if result.Category != "" {
				category = result.Category
			}
			if len(result.Tags) > 0 {
				tags = result.Tags
			}
			if len(result.SmartData) > 0 {
				extras = result.SmartData
			}
		}
	}

	// REHOST discovered covers. A submitted image already produced an owned
	// cover, which wins.
	if coverURL == nil && coverCandidate != "" {
		if o.rehoster != nil && o.rehoster.Configured() {
			hosted, err := o.rehoster.RehostURL(ctx, coverCandidate)
			if err != nil {
				trace.Fail(StageRehost, err)
				coverURL = &coverCandidate
			} else {
				coverURL = &hosted
			}
		} else {
			coverURL = &coverCandidate
		}
	}

	params := &db.SiftParams{
		OwnerID:       req.OwnerID,
		SourceURL:     sourceURL,
		Title:         title,
		Summary:       summary,
		Tags:          tags,
		Category:      category,
		Extras:        extras,
		CoverImageURL: coverURL,
		Metadata: db.SiftMetadata{
			Status:     db.SiftStatusCompleted,
			DebugTrace: trace.String(),
		},
	}

	// PERSIST: the only stage allowed to fail the pipeline.
	record, err := o.persist(ctx, req.ExistingID, params)
	if err == nil {
		return record, nil
	}
	trace.Fail(StagePersist, err)
	slog.Error("persist failed, writing fallback record", "owner", req.OwnerID, "error", err)

	// FALLBACK_PERSIST: minimal record so the user never loses the link.
	fallback := &db.SiftParams{
		OwnerID:   req.OwnerID,
		SourceURL: sourceURL,
		Title:     "Link from " + domain,
		Summary:   "Content extraction failed, but link saved.",
		Tags:      []string{"Link"},
		Category:  "Other",
		Metadata: db.SiftMetadata{
			Status:     db.SiftStatusCompleted,
			DebugTrace: trace.String(),
		},
	}
	record, fbErr := o.persist(ctx, req.ExistingID, fallback)
	if fbErr != nil {
		return nil, fmt.Errorf("fallback persist failed: %w (original: %v)", fbErr, err)
	}
	return record, nil
}

// persist updates the placeholder row when an id was supplied, otherwise
// inserts a fresh row.
func (o *Orchestrator) persist(ctx context.Context, existingID string, params *db.SiftParams) (*db.Sift, error) {
	if existingID != "" {
		id := db.ParseUUID(existingID)
		if id.Valid {
			return o.store.UpdateSift(ctx, id, params)
		}
	}
	return o.store.InsertSift(ctx, nil, params)
}

// NewPlaceholder builds the optimistic pending record the client inserts
// before the pipeline runs.
func NewPlaceholder(url, ownerID string) *db.SiftParams {
	return &db.SiftParams{
		OwnerID:   ownerID,
		SourceURL: url,
		Title:     "Sifting…",
		Tags:      []string{},
		Metadata:  db.SiftMetadata{Status: db.SiftStatusPending},
	}
}
