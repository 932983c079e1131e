package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/doccontrol/internal/gcp"
	"github.com/Lllllllleong/doccontrol/internal/models"
	"github.com/Lllllllleong/doccontrol/internal/numbering"
	"github.com/Lllllllleong/doccontrol/internal/pdfexport"
)

const defaultExportConcurrency = 4

// CompanyReader loads company profiles.
type CompanyReader interface {
	GetCompany(ctx context.Context, companyID string) (*models.Company, error)
}

// ExportSink stores rendered documents.
type ExportSink interface {
	// Upload writes data to object, replacing any previous export, and
	// returns the stored URI.
	Upload(ctx context.Context, object string, data []byte) (string, error)
	// Archive keeps the first copy written to object and reports whether
	// this call wrote it.
	Archive(ctx context.Context, object string, data []byte) (bool, error)
}

// ExportConfig holds configuration for the record exporter.
type ExportConfig struct {
	ProjectID           string
	CompaniesCollection string
	ExportsBucket       string
	AssetsBucket        string
	LogoObject          string
	ProductName         string
	Concurrency         int
}

// ExportFunction renders records as branded PDFs and stores them in GCS.
type ExportFunction struct {
	firestoreClient *firestore.Client
	storageClient   *storage.Client
	companies       CompanyReader
	records         RecordRepository
	sink            ExportSink
	exporter        *pdfexport.Exporter
	now             func() time.Time
	config          ExportConfig
}

// NewExporter creates an ExportFunction backed by Firestore and GCS.
func NewExporter(ctx context.Context) (*ExportFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	config := ExportConfig{
		ProjectID:           projectID,
		CompaniesCollection: gcp.GetEnv("COMPANIES_COLLECTION", models.CompaniesCollection),
		ExportsBucket:       gcp.GetEnv("EXPORTS_BUCKET", ""),
		AssetsBucket:        gcp.GetEnv("ASSETS_BUCKET", ""),
		LogoObject:          gcp.GetEnv("LOGO_OBJECT", "branding/logo.png"),
		ProductName:         gcp.GetEnv("PRODUCT_NAME", pdfexport.DefaultBrand().Product),
		Concurrency:         gcp.GetEnvInt("EXPORT_CONCURRENCY", defaultExportConcurrency),
	}
	if config.ExportsBucket == "" {
		return nil, fmt.Errorf("EXPORTS_BUCKET environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	brand := pdfexport.DefaultBrand()
	brand.Product = config.ProductName
	opts := []pdfexport.ExporterOption{pdfexport.WithBrand(brand)}
	if config.AssetsBucket != "" && config.LogoObject != "" {
		logo := gcp.ObjectAsset{Bucket: storageClient.Bucket(config.AssetsBucket), Object: config.LogoObject}
		opts = append(opts, pdfexport.WithLogo(&pdfexport.CachedAsset{Loader: logo}))
	}

	f := &ExportFunction{
		firestoreClient: firestoreClient,
		storageClient:   storageClient,
		companies:       gcp.NewCompanyStore(firestoreClient, config.CompaniesCollection),
		records:         gcp.NewRecordStore(firestoreClient),
		sink:            gcp.NewExportBucket(storageClient, config.ExportsBucket),
		exporter:        pdfexport.NewExporter(opts...),
		now:             time.Now,
		config:          config,
	}
	slog.Info("Record exporter initialized.", "exportsBucket", config.ExportsBucket, "concurrency", config.Concurrency)
	return f, nil
}

func newExportFunction(companies CompanyReader, records RecordRepository, sink ExportSink, exporter *pdfexport.Exporter, now func() time.Time, concurrency int) *ExportFunction {
	return &ExportFunction{
		companies: companies,
		records:   records,
		sink:      sink,
		exporter:  exporter,
		now:       now,
		config:    ExportConfig{Concurrency: concurrency},
	}
}

// Process renders one record and stores the PDF at {companyId}/{filename}.
func (f *ExportFunction) Process(ctx context.Context, req *models.ExportRequest) (*models.ExportResponse, error) {
	logCtx := slog.With("companyId", req.CompanyID, "recordId", req.RecordID, "entityType", req.EntityType)

	if req.CompanyID == "" || req.RecordID == "" {
		return nil, fmt.Errorf("%w: companyId and recordId are required", ErrInvalidRequest)
	}
	t, err := numbering.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	company, err := f.companies.GetCompany(ctx, req.CompanyID)
	if err != nil {
		logCtx.Error("Failed to load company", "error", err)
		return nil, err
	}
	res, err := f.exportRecord(ctx, logCtx, company, req.CompanyID, t, req.RecordID, req.Version)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (f *ExportFunction) exportRecord(ctx context.Context, logCtx *slog.Logger, company *models.Company, companyID string, t numbering.EntityType, recordID, version string) (*models.ExportResponse, error) {
	rec, err := f.records.GetRecord(ctx, t, recordID)
	if err != nil {
		logCtx.Error("Failed to load record", "error", err)
		return nil, err
	}
	ctl := rec.Control()
	if ctl.CompanyID != companyID {
		logCtx.Warn("Record is not owned by the requesting company.", "ownerCompanyId", ctl.CompanyID)
		return nil, fmt.Errorf("%w: %s", gcp.ErrRecordNotFound, recordID)
	}
	logCtx = logCtx.With("docNumber", ctl.DocNumber)

	// The stored revision is the one issued at creation. Exports show the
	// revision current today.
	var rev numbering.Revision
	if !ctl.CreatedAt.IsZero() {
		if rev, err = numbering.ComputeRevision(ctl.CreatedAt, f.now()); err != nil {
			return nil, err
		}
		ctl.Revision = rev.Label()
		ctl.ReviewDate = rev.ReviewDateLabel()
	}

	renderer, err := pdfexport.RendererFor(rec)
	if err != nil {
		logCtx.Error("Record cannot be rendered", "error", err)
		return nil, err
	}

	doc, err := f.exporter.Export(ctx, pdfexport.Options{
		Title:   renderer.HeaderTitle(rec.RecordTitle()),
		Version: version,
		Control: pdfexport.DocumentControl{
			DocNumber:   ctl.DocNumber,
			Revision:    ctl.Revision,
			ReviewDate:  ctl.ReviewDate,
			CompanyName: company.Name,
			PreparedBy:  ctl.PreparedBy,
			Title:       rec.RecordTitle(),
			Type:        renderer.TypeLabel,
		},
		Issuer:  issuerFor(company),
		Content: renderer.Content,
	})
	if err != nil {
		logCtx.Error("Render failed", "error", err)
		return nil, err
	}

	object := path.Join(companyID, doc.Filename)
	uri, err := f.sink.Upload(ctx, object, doc.Data)
	if err != nil {
		logCtx.Error("Upload failed", "error", err, "gcsObject", object)
		return nil, err
	}

	if ctl.DocNumber != "" && rev.Number > 0 {
		archived := path.Join(companyID, "archive", ctl.DocNumber, fmt.Sprintf("rev-%02d.pdf", rev.Number))
		if wrote, err := f.sink.Archive(ctx, archived, doc.Data); err != nil {
			logCtx.Warn("Failed to archive revision copy.", "error", err, "gcsObject", archived)
		} else if wrote {
			logCtx.Info("Archived first copy of revision.", "gcsObject", archived)
		}
	}

	if err := f.records.SetExportURI(ctx, t, recordID, uri); err != nil {
		logCtx.Warn("Export stored but the record could not be updated.", "error", err, "gcsUri", uri)
	}

	logCtx.Info("Record exported.", "gcsUri", uri, "pages", doc.Pages)
	return &models.ExportResponse{
		Status:    StatusSuccess,
		DocNumber: ctl.DocNumber,
		Filename:  doc.Filename,
		PageCount: doc.Pages,
		GCSUri:    uri,
	}, nil
}

// ProcessBatch exports a register of records. When no record IDs are given,
// every record of the type owned by the company is exported. A failing record
// does not stop the others.
func (f *ExportFunction) ProcessBatch(ctx context.Context, req *models.BatchExportRequest) (*models.BatchExportResponse, error) {
	logCtx := slog.With("companyId", req.CompanyID, "entityType", req.EntityType)

	if req.CompanyID == "" {
		return nil, fmt.Errorf("%w: companyId is required", ErrInvalidRequest)
	}
	t, err := numbering.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	company, err := f.companies.GetCompany(ctx, req.CompanyID)
	if err != nil {
		logCtx.Error("Failed to load company", "error", err)
		return nil, err
	}

	ids := req.RecordIDs
	if len(ids) == 0 {
		if ids, err = f.records.ListRecordIDs(ctx, req.CompanyID, t); err != nil {
			logCtx.Error("Failed to list records", "error", err)
			return nil, err
		}
	}
	logCtx.Info("Starting batch export.", "recordCount", len(ids))

	limit := f.config.Concurrency
	if limit <= 0 {
		limit = defaultExportConcurrency
	}
	results := make([]models.BatchExportResult, len(ids))
	var eg errgroup.Group
	eg.SetLimit(limit)
	for i, id := range ids {
		eg.Go(func() error {
			result := models.BatchExportResult{RecordID: id}
			res, err := f.exportRecord(ctx, logCtx.With("recordId", id), company, req.CompanyID, t, id, req.Version)
			if err != nil {
				result.Error = err.Error()
			} else {
				result.Filename = res.Filename
				result.GCSUri = res.GCSUri
			}
			results[i] = result
			return nil
		})
	}
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &models.BatchExportResponse{Results: results}
	for _, r := range results {
		if r.Error == "" {
			out.Exported++
		} else {
			out.Failed++
		}
	}
	switch {
	case out.Failed == 0:
		out.Status = StatusSuccess
	case out.Exported == 0:
		out.Status = StatusFailed
	default:
		out.Status = StatusPartial
	}
	logCtx.Info("Batch export finished.", "exported", out.Exported, "failed", out.Failed)
	return out, nil
}

func issuerFor(c *models.Company) pdfexport.Issuer {
	var contact []string
	for _, v := range []string{c.ContactEmail, c.ContactPhone} {
		if strings.TrimSpace(v) != "" {
			contact = append(contact, v)
		}
	}
	return pdfexport.Issuer{
		CompanyName:        c.Name,
		RegistrationNumber: c.RegistrationNumber,
		Contact:            strings.Join(contact, " / "),
	}
}

var (
	_ CompanyReader    = (*gcp.CompanyStore)(nil)
	_ RecordRepository = (*gcp.RecordStore)(nil)
	_ ExportSink       = (*gcp.ExportBucket)(nil)
)
