// Package service implements dataset upload, retrieval and deletion.
package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marketscope_backend/internal/datasets/repository"
	"marketscope_backend/internal/datasets/transport"
	"marketscope_backend/internal/events"
	"marketscope_backend/internal/geo"
	"marketscope_backend/internal/ingest"
	"marketscope_backend/internal/scoring"
	"marketscope_backend/internal/storage"
	"marketscope_backend/platform/apperr"
	"marketscope_backend/platform/logger"
)

// UploadFile is one raw CSV in a dataset upload.
type UploadFile struct {
	FileName string
	Size     int64
	Content  []byte
}

// UploadInput carries the parsed multipart form of a dataset upload. Only the
// customer ledger is required; competitors and demographics are optional and
// a missing demographic table is synthesized from the observed ZIPs.
type UploadInput struct {
	Name         string
	Vertical     string
	PracticeZip  string
	Customers    UploadFile
	Competitors  *UploadFile
	Demographics *UploadFile
}

// Service implements dataset operations.
type Service struct {
	repo      *repository.Repository
	centroids *geo.Table
	store     storage.Service
	bucket    string
	bus       events.Bus
	log       *logger.Logger
}

func New(repo *repository.Repository, centroids *geo.Table, log *logger.Logger) *Service {
	return &Service{repo: repo, centroids: centroids, log: log}
}

// SetEventBus wires the domain event bus.
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

// SetArchiveStorage wires the optional raw-file archive.
func (s *Service) SetArchiveStorage(store storage.Service, bucket string) {
	s.store = store
	s.bucket = bucket
}

// Upload validates, parses and stores a dataset. Parse failures on the
// required customer file are hard validation errors; everything recoverable
// becomes a stored warning.
func (s *Service) Upload(ctx context.Context, in UploadInput) (transport.DatasetResponse, error) {
	if in.Vertical == "" {
		in.Vertical = "medspa"
	}

	customers, warnings, err := ingest.ParseCustomers(bytes.NewReader(in.Customers.Content), nil)
	if err != nil {
		return transport.DatasetResponse{}, apperr.Validation(err.Error()).WithOp("datasets.Upload")
	}

	var competitors []scoring.Competitor
	if in.Competitors != nil {
		parsed, compWarnings, err := ingest.ParseCompetitors(bytes.NewReader(in.Competitors.Content))
		if err != nil {
			return transport.DatasetResponse{}, apperr.Validation(err.Error()).WithOp("datasets.Upload")
		}
		competitors = parsed
		warnings = append(warnings, compWarnings...)
	}

	var demographics []scoring.ZipDemographics
	if in.Demographics != nil {
		parsed, demoWarnings, err := ingest.ParseDemographics(bytes.NewReader(in.Demographics.Content))
		if err != nil {
			return transport.DatasetResponse{}, apperr.Validation(err.Error()).WithOp("datasets.Upload")
		}
		demographics = parsed
		warnings = append(warnings, demoWarnings...)
	} else {
		demographics = synthesizeUniverse(customers, competitors)
	}

	// Enrich up front so the stored universe always has locations.
	enriched := geo.Enrich(demographics, s.centroids)
	if len(enriched.Dropped) > 0 {
		warnings = append(warnings, ingest.Warning{
			Code:    ingest.WarnRowsDropped,
			Message: fmt.Sprintf("%d ZIPs dropped because no location could be resolved", len(enriched.Dropped)),
		})
	}
	if len(enriched.Rows) == 0 {
		return transport.DatasetResponse{}, apperr.Validation("no ZIP in the upload could be geocoded").WithOp("datasets.Upload")
	}

	ds, err := s.repo.Create(ctx, repository.Dataset{
		Name:            in.Name,
		Vertical:        in.Vertical,
		PracticeZip:     in.PracticeZip,
		CustomerRows:    len(customers),
		CompetitorRows:  len(competitors),
		DemographicRows: len(enriched.Rows),
		Warnings:        warnings,
	})
	if err != nil {
		return transport.DatasetResponse{}, apperr.Wrap(apperr.KindInternal, "failed to store dataset", err)
	}

	if err := s.repo.ReplaceCustomers(ctx, ds.ID, customers); err != nil {
		return transport.DatasetResponse{}, apperr.Wrap(apperr.KindInternal, "failed to store customer rows", err)
	}
	if err := s.repo.ReplaceCompetitors(ctx, ds.ID, competitors); err != nil {
		return transport.DatasetResponse{}, apperr.Wrap(apperr.KindInternal, "failed to store competitor rows", err)
	}
	if err := s.repo.ReplaceDemographics(ctx, ds.ID, enriched.Rows); err != nil {
		return transport.DatasetResponse{}, apperr.Wrap(apperr.KindInternal, "failed to store demographic rows", err)
	}

	s.archiveUploads(ctx, &ds, in)
	s.log.IngestWarnings(ds.ID.String(), len(customers), len(warnings))

	if s.bus != nil {
		s.bus.Publish(ctx, events.DatasetUploaded{
			BaseEvent:    events.NewBaseEvent(),
			DatasetID:    ds.ID,
			Name:         ds.Name,
			Vertical:     ds.Vertical,
			CustomerRows: ds.CustomerRows,
			WarningCount: len(warnings),
		})
	}

	return toResponse(ds), nil
}

// archiveUploads stores the raw files when an archive is configured. Archive
// failures are logged, never fatal: the parsed rows are already persisted.
func (s *Service) archiveUploads(ctx context.Context, ds *repository.Dataset, in UploadInput) {
	if s.store == nil {
		return
	}

	folder := ds.ID.String()
	archive := func(file *UploadFile) *string {
		if file == nil {
			return nil
		}
		key, err := s.store.ArchiveFile(ctx, s.bucket, folder, file.FileName, bytes.NewReader(file.Content), file.Size)
		if err != nil {
			s.log.Warn("failed to archive dataset file", "datasetId", ds.ID, "file", file.FileName, "error", err)
			return nil
		}
		return &key
	}

	customersKey := archive(&in.Customers)
	competitorsKey := archive(in.Competitors)
	demographicsKey := archive(in.Demographics)

	if customersKey == nil && competitorsKey == nil && demographicsKey == nil {
		return
	}
	if err := s.repo.SetFileKeys(ctx, ds.ID, customersKey, competitorsKey, demographicsKey); err != nil {
		s.log.Warn("failed to record archive keys", "datasetId", ds.ID, "error", err)
		return
	}
	ds.CustomersFileKey = customersKey
	ds.CompetitorsFileKey = competitorsKey
	ds.DemographicsFileKey = demographicsKey
}

// Get returns one dataset.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.DatasetResponse, error) {
	ds, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrDatasetNotFound {
			return transport.DatasetResponse{}, apperr.NotFound("dataset not found")
		}
		return transport.DatasetResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load dataset", err)
	}
	return toResponse(ds), nil
}

// List returns all datasets.
func (s *Service) List(ctx context.Context) (transport.DatasetListResponse, error) {
	datasets, err := s.repo.List(ctx)
	if err != nil {
		return transport.DatasetListResponse{}, apperr.Wrap(apperr.KindInternal, "failed to list datasets", err)
	}

	items := make([]transport.DatasetResponse, 0, len(datasets))
	for _, ds := range datasets {
		items = append(items, toResponse(ds))
	}
	return transport.DatasetListResponse{Items: items, Total: len(items)}, nil
}

// Delete removes a dataset and best-effort deletes its archived files.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ds, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrDatasetNotFound {
			return apperr.NotFound("dataset not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to load dataset", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete dataset", err)
	}

	if s.store != nil {
		for _, key := range []*string{ds.CustomersFileKey, ds.CompetitorsFileKey, ds.DemographicsFileKey} {
			if key == nil {
				continue
			}
			if err := s.store.DeleteObject(ctx, s.bucket, *key); err != nil {
				s.log.Warn("failed to delete archived file", "datasetId", id, "key", *key, "error", err)
			}
		}
	}
	return nil
}

// DownloadURL creates a presigned URL for one archived raw file. kind is one
// of customers, competitors, demographics.
func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID, kind string) (transport.FileDownloadResponse, error) {
	if s.store == nil {
		return transport.FileDownloadResponse{}, apperr.BadRequest("file archive is not configured")
	}

	ds, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrDatasetNotFound {
			return transport.FileDownloadResponse{}, apperr.NotFound("dataset not found")
		}
		return transport.FileDownloadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load dataset", err)
	}

	var key *string
	switch kind {
	case "customers":
		key = ds.CustomersFileKey
	case "competitors":
		key = ds.CompetitorsFileKey
	case "demographics":
		key = ds.DemographicsFileKey
	default:
		return transport.FileDownloadResponse{}, apperr.BadRequest("unknown file kind")
	}
	if key == nil {
		return transport.FileDownloadResponse{}, apperr.NotFound("no archived file of that kind")
	}

	url, err := s.store.GenerateDownloadURL(ctx, s.bucket, *key)
	if err != nil {
		return transport.FileDownloadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to presign download", err)
	}
	return transport.FileDownloadResponse{
		URL:       url.URL,
		ExpiresAt: url.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// Repository exposes the repository for cross-module wiring (analysis worker).
func (s *Service) Repository() *repository.Repository {
	return s.repo
}

// synthesizeUniverse builds a minimal demographic table from the ZIPs seen in
// the customer and competitor files, for uploads without a demographics CSV.
// Enrichment fills in locations and national-average columns.
func synthesizeUniverse(customers []scoring.Customer, competitors []scoring.Competitor) []scoring.ZipDemographics {
	seen := make(map[string]struct{})
	rows := make([]scoring.ZipDemographics, 0)
	add := func(zip string) {
		if zip == "" {
			return
		}
		if _, ok := seen[zip]; ok {
			return
		}
		seen[zip] = struct{}{}
		rows = append(rows, scoring.ZipDemographics{Zip: zip})
	}

	for _, c := range customers {
		add(c.Zip)
	}
	for _, comp := range competitors {
		add(comp.Zip)
	}
	return rows
}

func toResponse(ds repository.Dataset) transport.DatasetResponse {
	warnings := ds.Warnings
	if warnings == nil {
		warnings = []ingest.Warning{}
	}
	return transport.DatasetResponse{
		ID:              ds.ID,
		Name:            ds.Name,
		Vertical:        ds.Vertical,
		PracticeZip:     ds.PracticeZip,
		CustomerRows:    ds.CustomerRows,
		CompetitorRows:  ds.CompetitorRows,
		DemographicRows: ds.DemographicRows,
		Warnings:        warnings,
		CreatedAt:       ds.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       ds.UpdatedAt.Format(time.RFC3339),
	}
}
