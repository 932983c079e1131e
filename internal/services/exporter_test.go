package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/doccontrol/internal/models"
	"github.com/Lllllllleong/doccontrol/internal/numbering"
	"github.com/Lllllllleong/doccontrol/internal/pdfexport"
)

func newTestExporter(db *memoryFirestore, sink *memorySink, concurrency int) *ExportFunction {
	e := pdfexport.NewExporter(pdfexport.WithExportLogger(quietLogger()))
	return newExportFunction(db, db, sink, e, func() time.Time { return today }, concurrency)
}

func TestCreateNumberAndExportNCR(t *testing.T) {
	db := sunriseHoldings()
	db.putRecord("ncr-1", &models.NCRRecord{
		RecordControl: models.RecordControl{CompanyID: "company-sh", PreparedBy: "Thandi Mokoena", CreatedAt: today},
		Title:         "Calibration overdue on torque wrenches",
		Severity:      "Major",
		Status:        "Open",
		Description:   "Three torque wrenches were found in use past their calibration due date.",
	})

	allocated, err := newTestNumbering(db).Process(context.Background(),
		&models.AllocateRequest{CompanyID: "company-sh", RecordID: "ncr-1", EntityType: "ncr"})
	require.NoError(t, err)
	require.Equal(t, "IG-SH-NCR-004", allocated.DocNumber)

	sink := newMemorySink()
	res, err := newTestExporter(db, sink, 1).Process(context.Background(),
		&models.ExportRequest{CompanyID: "company-sh", RecordID: "ncr-1", EntityType: "ncr"})
	require.NoError(t, err)

	const filename = "IG-SH-NCR-004_Calibration_overdue_on_torque_wrenches.pdf"
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "IG-SH-NCR-004", res.DocNumber)
	assert.Equal(t, filename, res.Filename)
	assert.Equal(t, 1, res.PageCount)
	assert.Equal(t, "gs://exports/company-sh/"+filename, res.GCSUri)

	data := sink.objects["company-sh/"+filename]
	require.NotEmpty(t, data)
	pages, err := pdfexport.VerifyPDF(data)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)

	assert.Contains(t, sink.archived, "company-sh/archive/IG-SH-NCR-004/rev-01.pdf")
	assert.Equal(t, res.GCSUri, db.record(numbering.EntityNCR, "ncr-1").Control().LastExportURI)
}

func TestExport_ShowsCurrentRevision(t *testing.T) {
	db := sunriseHoldings()
	db.putRecord("doc-1", &models.DocumentRecord{
		RecordControl: models.RecordControl{
			CompanyID: "company-sh", DocNumber: "IG-SH-DOC-002", Revision: "Rev 01", ReviewDate: "31 January 2025",
			CreatedAt: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		},
		Title:   "Quality Policy",
		Purpose: "States the commitment to customer satisfaction.",
	})
	sink := newMemorySink()

	_, err := newTestExporter(db, sink, 1).Process(context.Background(),
		&models.ExportRequest{CompanyID: "company-sh", RecordID: "doc-1", EntityType: "document", Version: "Issued for audit"})
	require.NoError(t, err)
	assert.Contains(t, sink.archived, "company-sh/archive/IG-SH-DOC-002/rev-03.pdf")

	stored := db.record(numbering.EntityDocument, "doc-1").Control()
	assert.Equal(t, "Rev 01", stored.Revision, "export must not rewrite the issued revision")
}

func TestExport_ArchiveKeepsFirstCopy(t *testing.T) {
	db := sunriseHoldings()
	db.putRecord("ncr-1", &models.NCRRecord{
		RecordControl: models.RecordControl{CompanyID: "company-sh", DocNumber: "IG-SH-NCR-001", CreatedAt: today},
		Title:         "Spill in warehouse",
	})
	sink := newMemorySink()
	f := newTestExporter(db, sink, 1)
	req := &models.ExportRequest{CompanyID: "company-sh", RecordID: "ncr-1", EntityType: "ncr"}

	_, err := f.Process(context.Background(), req)
	require.NoError(t, err)
	first := sink.archived["company-sh/archive/IG-SH-NCR-001/rev-01.pdf"]
	_, err = f.Process(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, sink.uploads)
	assert.Len(t, sink.archived, 1)
	assert.Equal(t, first, sink.archived["company-sh/archive/IG-SH-NCR-001/rev-01.pdf"])
}

func TestExport_Errors(t *testing.T) {
	db := sunriseHoldings()
	db.putRecord("foreign", &models.AuditRecord{
		RecordControl: models.RecordControl{CompanyID: "company-other"},
		Title:         "Supplier audit",
	})
	db.putRecord("untitled", &models.AuditRecord{RecordControl: models.RecordControl{CompanyID: "company-sh"}})
	db.putRecord("unowned", &models.AuditRecord{Title: "Orphaned audit"})
	sink := newMemorySink()
	f := newTestExporter(db, sink, 1)

	_, err := f.Process(context.Background(), &models.ExportRequest{CompanyID: "company-sh", RecordID: "unowned", EntityType: "audit"})
	assert.True(t, IsNotFound(err))

	_, err = f.Process(context.Background(), &models.ExportRequest{CompanyID: "company-sh", RecordID: "foreign", EntityType: "audit"})
	assert.True(t, IsNotFound(err))

	_, err = f.Process(context.Background(), &models.ExportRequest{CompanyID: "company-sh", RecordID: "untitled", EntityType: "audit"})
	assert.ErrorIs(t, err, pdfexport.ErrMissingTitle)
	assert.True(t, IsClientError(err))

	_, err = f.Process(context.Background(), &models.ExportRequest{CompanyID: "nobody", RecordID: "untitled", EntityType: "audit"})
	assert.True(t, IsNotFound(err))

	_, err = f.Process(context.Background(), &models.ExportRequest{CompanyID: "company-sh", EntityType: "audit"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	assert.Zero(t, sink.uploads)
}

func TestExportBatch_RegisterWithFailures(t *testing.T) {
	db := sunriseHoldings()
	for i := 1; i <= 5; i++ {
		db.putRecord(fmt.Sprintf("audit-%d", i), &models.AuditRecord{
			RecordControl: models.RecordControl{CompanyID: "company-sh", DocNumber: fmt.Sprintf("IG-SH-AUD-%03d", i), CreatedAt: today},
			Title:         fmt.Sprintf("Internal audit %d", i),
		})
	}
	db.putRecord("audit-6", &models.AuditRecord{RecordControl: models.RecordControl{CompanyID: "company-sh"}})
	db.putRecord("audit-other", &models.AuditRecord{RecordControl: models.RecordControl{CompanyID: "company-other"}, Title: "x"})
	sink := newMemorySink()

	res, err := newTestExporter(db, sink, 2).ProcessBatch(context.Background(),
		&models.BatchExportRequest{CompanyID: "company-sh", EntityType: "audit"})
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, res.Status)
	assert.Equal(t, 5, res.Exported)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Results, 6)
	for i, r := range res.Results[:5] {
		assert.Equal(t, fmt.Sprintf("audit-%d", i+1), r.RecordID)
		assert.Equal(t, fmt.Sprintf("IG-SH-AUD-%03d_Internal_audit_%d.pdf", i+1, i+1), r.Filename)
		assert.Empty(t, r.Error)
	}
	assert.Equal(t, "audit-6", res.Results[5].RecordID)
	assert.NotEmpty(t, res.Results[5].Error)
	assert.Equal(t, 5, sink.uploads)
}

func TestExportBatch_ExplicitIDs(t *testing.T) {
	db := sunriseHoldings()
	db.putRecord("mr-1", &models.ManagementReviewRecord{
		RecordControl: models.RecordControl{CompanyID: "company-sh", DocNumber: "IG-SH-MR-001"},
		Title:         "Annual management review",
	})
	res, err := newTestExporter(db, newMemorySink(), 0).ProcessBatch(context.Background(),
		&models.BatchExportRequest{CompanyID: "company-sh", EntityType: "MR", RecordIDs: []string{"mr-1", "mr-missing"}})
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, res.Status)
	assert.Equal(t, 1, res.Exported)

	res, err = newTestExporter(db, newMemorySink(), 0).ProcessBatch(context.Background(),
		&models.BatchExportRequest{CompanyID: "company-sh", EntityType: "MR", RecordIDs: []string{"mr-missing"}})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
}
