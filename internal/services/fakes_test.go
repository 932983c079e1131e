package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Lllllllleong/doccontrol/internal/gcp"
	"github.com/Lllllllleong/doccontrol/internal/models"
	"github.com/Lllllllleong/doccontrol/internal/numbering"
)

// memoryFirestore holds companies and records in memory.
type memoryFirestore struct {
	mu        sync.Mutex
	companies map[string]*models.Company
	records   map[string]models.Record
	stampErr  error
}

func newMemoryFirestore() *memoryFirestore {
	return &memoryFirestore{companies: map[string]*models.Company{}, records: map[string]models.Record{}}
}

func recordKey(t numbering.EntityType, id string) string { return string(t) + "/" + id }

func (m *memoryFirestore) putRecord(id string, rec models.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recordKey(rec.EntityType(), id)] = rec
}

func (m *memoryFirestore) record(t numbering.EntityType, id string) models.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[recordKey(t, id)]
}

func (m *memoryFirestore) GetCompany(_ context.Context, id string) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", numbering.ErrCompanyNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (m *memoryFirestore) ReadCompany(ctx context.Context, id string) (numbering.CompanyCounters, error) {
	c, err := m.GetCompany(ctx, id)
	if err != nil {
		return numbering.CompanyCounters{}, err
	}
	return c.Counters(), nil
}

func (m *memoryFirestore) WriteCounter(_ context.Context, id string, t numbering.EntityType, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return numbering.ErrCompanyNotFound
	}
	m.setCounter(c, t, value)
	return nil
}

func (m *memoryFirestore) setCounter(c *models.Company, t numbering.EntityType, value int) {
	switch t {
	case numbering.EntityDocument:
		c.DocCounter = value
	case numbering.EntityNCR:
		c.NCRCounter = value
	case numbering.EntityAudit:
		c.AuditCounter = value
	case numbering.EntityManagementReview:
		c.ReviewCounter = value
	}
}

// BindNext numbers a record under the store lock. A failing stamp leaves the
// counter untouched, like a rolled back transaction.
func (m *memoryFirestore) BindNext(_ context.Context, companyID string, t numbering.EntityType, recordID string, issue func(string, int) numbering.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(t, recordID)]
	if !ok || rec.Control().CompanyID != companyID {
		return fmt.Errorf("%w: %s", gcp.ErrRecordNotFound, recordID)
	}
	if rec.Control().DocNumber != "" {
		return numbering.ErrAlreadyNumbered
	}
	c, ok := m.companies[companyID]
	if !ok {
		return fmt.Errorf("%w: %s", numbering.ErrCompanyNotFound, companyID)
	}
	if m.stampErr != nil {
		return m.stampErr
	}
	alloc := issue(c.Code, c.Counter(t)+1)
	m.setCounter(c, t, alloc.Identifier.Sequence)
	ctl := rec.Control()
	ctl.DocNumber = alloc.Identifier.String()
	ctl.Revision = alloc.Revision.Label()
	ctl.ReviewDate = alloc.Revision.ReviewDateLabel()
	return nil
}

// GetRecord returns a copy so callers cannot mutate stored state, like a
// Firestore read.
func (m *memoryFirestore) GetRecord(_ context.Context, t numbering.EntityType, id string) (models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(t, id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gcp.ErrRecordNotFound, id)
	}
	return copyRecord(rec), nil
}

func copyRecord(rec models.Record) models.Record {
	switch r := rec.(type) {
	case *models.DocumentRecord:
		cp := *r
		return &cp
	case *models.NCRRecord:
		cp := *r
		return &cp
	case *models.AuditRecord:
		cp := *r
		return &cp
	case *models.ManagementReviewRecord:
		cp := *r
		return &cp
	}
	return rec
}

func (m *memoryFirestore) StampControl(_ context.Context, t numbering.EntityType, id string, stamp models.ControlStamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stampErr != nil {
		return m.stampErr
	}
	rec, ok := m.records[recordKey(t, id)]
	if !ok {
		return gcp.ErrRecordNotFound
	}
	ctl := rec.Control()
	ctl.DocNumber, ctl.Revision, ctl.ReviewDate = stamp.DocNumber, stamp.Revision, stamp.ReviewDate
	return nil
}

func (m *memoryFirestore) SetExportURI(_ context.Context, t numbering.EntityType, id, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(t, id)]
	if !ok {
		return gcp.ErrRecordNotFound
	}
	rec.Control().LastExportURI = uri
	return nil
}

func (m *memoryFirestore) ListRecordIDs(_ context.Context, companyID string, t numbering.EntityType) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	prefix := string(t) + "/"
	for key, rec := range m.records {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix && rec.Control().CompanyID == companyID {
			ids = append(ids, key[len(prefix):])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// memorySink stores exports in memory.
type memorySink struct {
	mu       sync.Mutex
	objects  map[string][]byte
	archived map[string][]byte
	uploads  int
}

func newMemorySink() *memorySink {
	return &memorySink{objects: map[string][]byte{}, archived: map[string][]byte{}}
}

func (s *memorySink) Upload(_ context.Context, object string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[object] = data
	s.uploads++
	return "gs://exports/" + object, nil
}

func (s *memorySink) Archive(_ context.Context, object string, data []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.archived[object]; ok {
		return false, nil
	}
	s.archived[object] = data
	return true, nil
}
