package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/doccontrol/internal/gcp"
	"github.com/Lllllllleong/doccontrol/internal/models"
	"github.com/Lllllllleong/doccontrol/internal/numbering"
)

// Response statuses.
const (
	StatusSuccess         = "SUCCESS"
	StatusFallback        = "FALLBACK"
	StatusAlreadyNumbered = "ALREADY_NUMBERED"
	StatusPartial         = "PARTIAL"
	StatusFailed          = "FAILED"
)

// RecordRepository is the record storage used by the functions.
type RecordRepository interface {
	GetRecord(ctx context.Context, t numbering.EntityType, recordID string) (models.Record, error)
	StampControl(ctx context.Context, t numbering.EntityType, recordID string, stamp models.ControlStamp) error
	SetExportURI(ctx context.Context, t numbering.EntityType, recordID, uri string) error
	ListRecordIDs(ctx context.Context, companyID string, t numbering.EntityType) ([]string, error)
}

// NumberingConfig holds configuration for the number allocator.
type NumberingConfig struct {
	ProjectID           string
	CompaniesCollection string
}

// NumberingFunction allocates document numbers for newly created records.
type NumberingFunction struct {
	firestoreClient *firestore.Client
	allocator       *numbering.Allocator
	binder          numbering.RecordBinder
	records         RecordRepository
	config          NumberingConfig
}

// NewNumbering creates a NumberingFunction backed by Firestore.
func NewNumbering(ctx context.Context) (*NumberingFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	config := NumberingConfig{
		ProjectID:           projectID,
		CompaniesCollection: gcp.GetEnv("COMPANIES_COLLECTION", models.CompaniesCollection),
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	companies := gcp.NewCompanyStore(firestoreClient, config.CompaniesCollection)
	f := &NumberingFunction{
		firestoreClient: firestoreClient,
		allocator:       numbering.NewAllocator(companies),
		binder:          companies,
		records:         gcp.NewRecordStore(firestoreClient),
		config:          config,
	}
	slog.Info("Number allocator initialized.", "companiesCollection", config.CompaniesCollection)
	return f, nil
}

func newNumberingFunction(allocator *numbering.Allocator, binder numbering.RecordBinder, records RecordRepository) *NumberingFunction {
	return &NumberingFunction{allocator: allocator, binder: binder, records: records}
}

// Process allocates a number for the record in req and stamps it with the
// number, revision and review date. The counter and the record are updated
// together, so a failed stamp never consumes a number. A record that is
// already numbered keeps its number. Without a record ID the number is only
// allocated.
func (f *NumberingFunction) Process(ctx context.Context, req *models.AllocateRequest) (*models.AllocateResponse, error) {
	logCtx := slog.With("companyId", req.CompanyID, "recordId", req.RecordID, "entityType", req.EntityType)

	if req.CompanyID == "" {
		return nil, fmt.Errorf("%w: companyId is required", ErrInvalidRequest)
	}
	t, err := numbering.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if req.RecordID == "" {
		alloc, err := f.allocator.Allocate(ctx, req.CompanyID, t)
		var allocErr *numbering.AllocationError
		if err != nil && !errors.As(err, &allocErr) {
			logCtx.Error("Allocation rejected", "error", err)
			return nil, err
		}
		res := allocationResponse(alloc)
		logCtx.Info("Number allocated.", "docNumber", res.DocNumber, "fallback", res.Fallback)
		return res, nil
	}

	rec, err := f.loadOwnedRecord(ctx, logCtx, req.CompanyID, t, req.RecordID)
	if err != nil {
		return nil, err
	}
	if ctl := rec.Control(); ctl.DocNumber != "" {
		logCtx.Info("Record already numbered. Skipping.", "docNumber", ctl.DocNumber)
		return alreadyNumbered(ctl), nil
	}

	var alloc numbering.Allocation
	if f.binder != nil {
		alloc, err = f.allocator.AllocateRecord(ctx, f.binder, req.CompanyID, t, req.RecordID)
	} else {
		alloc, err = f.allocator.Allocate(ctx, req.CompanyID, t)
	}
	var allocErr *numbering.AllocationError
	switch {
	case errors.Is(err, numbering.ErrAlreadyNumbered):
		// Another delivery numbered the record after it was read.
		rec, err := f.loadOwnedRecord(ctx, logCtx, req.CompanyID, t, req.RecordID)
		if err != nil {
			return nil, err
		}
		logCtx.Info("Record numbered concurrently. Skipping.", "docNumber", rec.Control().DocNumber)
		return alreadyNumbered(rec.Control()), nil
	case err != nil && !errors.As(err, &allocErr):
		logCtx.Error("Allocation rejected", "error", err)
		return nil, err
	}

	res := allocationResponse(alloc)
	logCtx = logCtx.With("docNumber", res.DocNumber, "fallback", res.Fallback)
	if f.binder != nil && !alloc.Fallback {
		logCtx.Info("Number allocated and stamped.")
		return res, nil
	}

	stamp := models.ControlStamp{DocNumber: res.DocNumber, Revision: res.Revision, ReviewDate: res.ReviewDate}
	if err := f.records.StampControl(ctx, t, req.RecordID, stamp); err != nil {
		logCtx.Error("Number allocated but the record could not be stamped", "error", err)
		return res, fmt.Errorf("failed to stamp %s on record %s: %w", res.DocNumber, req.RecordID, err)
	}
	logCtx.Info("Number allocated and stamped.")
	return res, nil
}

// loadOwnedRecord reads a record and hides it unless companyID owns it.
func (f *NumberingFunction) loadOwnedRecord(ctx context.Context, logCtx *slog.Logger, companyID string, t numbering.EntityType, recordID string) (models.Record, error) {
	rec, err := f.records.GetRecord(ctx, t, recordID)
	if err != nil {
		logCtx.Error("Failed to load record", "error", err)
		return nil, err
	}
	if owner := rec.Control().CompanyID; owner != companyID {
		logCtx.Warn("Record is not owned by the requesting company.", "ownerCompanyId", owner)
		return nil, fmt.Errorf("%w: %s", gcp.ErrRecordNotFound, recordID)
	}
	return rec, nil
}

func allocationResponse(alloc numbering.Allocation) *models.AllocateResponse {
	res := &models.AllocateResponse{
		Status:     StatusSuccess,
		DocNumber:  alloc.Identifier.String(),
		Revision:   alloc.Revision.Label(),
		ReviewDate: alloc.Revision.ReviewDateLabel(),
		Fallback:   alloc.Fallback,
	}
	if alloc.Fallback {
		res.Status = StatusFallback
	}
	return res
}

func alreadyNumbered(ctl *models.RecordControl) *models.AllocateResponse {
	return &models.AllocateResponse{
		Status:     StatusAlreadyNumbered,
		DocNumber:  ctl.DocNumber,
		Revision:   ctl.Revision,
		ReviewDate: ctl.ReviewDate,
	}
}

// RevisionStatus computes the revision label and next review date of a record
// created on req.CreatedDate, as of req.AsOf or now.
func RevisionStatus(req *models.RevisionStatusRequest, now time.Time) (*models.RevisionStatusResponse, error) {
	created, err := numbering.ParseDate(req.CreatedDate)
	if err != nil {
		return nil, withField(err, "createdDate")
	}
	asOf := now
	if req.AsOf != "" {
		if asOf, err = numbering.ParseDate(req.AsOf); err != nil {
			return nil, withField(err, "asOf")
		}
	}
	rev, err := numbering.ComputeRevision(created, asOf)
	if err != nil {
		return nil, err
	}
	return &models.RevisionStatusResponse{
		Revision:       rev.Label(),
		RevisionNumber: rev.Number,
		ReviewDate:     rev.ReviewDateLabel(),
	}, nil
}

func withField(err error, field string) error {
	var dateErr *numbering.InvalidDateError
	if errors.As(err, &dateErr) {
		dateErr.Field = field
	}
	return err
}
