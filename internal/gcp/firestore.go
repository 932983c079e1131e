package gcp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/doccontrol/internal/models"
	"github.com/Lllllllleong/doccontrol/internal/numbering"
)

// ErrRecordNotFound is returned when a record does not exist or belongs to
// another company.
var ErrRecordNotFound = numbering.ErrRecordNotFound

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

var (
	_ numbering.CounterStore      = (*CompanyStore)(nil)
	_ numbering.AtomicIncrementer = (*CompanyStore)(nil)
	_ numbering.RecordBinder      = (*CompanyStore)(nil)
)

// CompanyStore reads companies and maintains their numbering counters.
type CompanyStore struct {
	client     *firestore.Client
	collection string
}

// NewCompanyStore returns a store over collection, defaulting to "companies".
func NewCompanyStore(client *firestore.Client, collection string) *CompanyStore {
	if collection == "" {
		collection = models.CompaniesCollection
	}
	return &CompanyStore{client: client, collection: collection}
}

func (s *CompanyStore) doc(companyID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(companyID)
}

// GetCompany loads a company document.
func (s *CompanyStore) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	snap, err := s.doc(companyID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", numbering.ErrCompanyNotFound, companyID)
		}
		return nil, fmt.Errorf("failed to read company %s: %w", companyID, err)
	}
	var c models.Company
	if err := snap.DataTo(&c); err != nil {
		return nil, fmt.Errorf("failed to decode company %s: %w", companyID, err)
	}
	return &c, nil
}

// ReadCompany implements numbering.CounterStore.
func (s *CompanyStore) ReadCompany(ctx context.Context, companyID string) (numbering.CompanyCounters, error) {
	c, err := s.GetCompany(ctx, companyID)
	if err != nil {
		return numbering.CompanyCounters{}, err
	}
	return c.Counters(), nil
}

// WriteCounter implements numbering.CounterStore.
func (s *CompanyStore) WriteCounter(ctx context.Context, companyID string, t numbering.EntityType, value int) error {
	_, err := s.doc(companyID).Update(ctx, []firestore.Update{{Path: t.CounterField(), Value: value}})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", numbering.ErrCompanyNotFound, companyID)
		}
		return fmt.Errorf("failed to write %s for company %s: %w", t.CounterField(), companyID, err)
	}
	return nil
}

// IncrementCounter bumps the counter for t inside a transaction and returns
// the company code with the new value. Concurrent allocators on other
// instances are serialized by Firestore.
func (s *CompanyStore) IncrementCounter(ctx context.Context, companyID string, t numbering.EntityType) (string, int, error) {
	ref := s.doc(companyID)
	var code string
	var next int
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var c models.Company
		if err := snap.DataTo(&c); err != nil {
			return fmt.Errorf("failed to decode company: %w", err)
		}
		code = c.Code
		next = c.Counter(t) + 1
		return tx.Update(ref, []firestore.Update{{Path: t.CounterField(), Value: next}})
	})
	if err != nil {
		if isNotFound(err) {
			return "", 0, fmt.Errorf("%w: %s", numbering.ErrCompanyNotFound, companyID)
		}
		return "", 0, fmt.Errorf("counter transaction for company %s failed: %w", companyID, err)
	}
	return code, next, nil
}

// BindNext increments the counter for t and stamps the issued number,
// revision and review date onto the record in one transaction. The record
// must belong to companyID and carry no number yet. A redelivered or racing
// request sees the committed number and gets numbering.ErrAlreadyNumbered.
func (s *CompanyStore) BindNext(ctx context.Context, companyID string, t numbering.EntityType, recordID string, issue func(code string, value int) numbering.Allocation) error {
	recordRef, err := recordDoc(s.client, t, recordID)
	if err != nil {
		return err
	}
	companyRef := s.doc(companyID)

	err = s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		recordSnap, err := tx.Get(recordRef)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, recordRef.Parent.ID, recordID)
			}
			return err
		}
		rec, _ := models.NewRecord(t)
		if err := recordSnap.DataTo(rec); err != nil {
			return fmt.Errorf("failed to decode %s/%s: %w", recordRef.Parent.ID, recordID, err)
		}
		ctl := rec.Control()
		if ctl.CompanyID != companyID {
			return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, recordRef.Parent.ID, recordID)
		}
		if ctl.DocNumber != "" {
			return fmt.Errorf("%w: %s", numbering.ErrAlreadyNumbered, ctl.DocNumber)
		}

		companySnap, err := tx.Get(companyRef)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("%w: %s", numbering.ErrCompanyNotFound, companyID)
			}
			return err
		}
		var c models.Company
		if err := companySnap.DataTo(&c); err != nil {
			return fmt.Errorf("failed to decode company: %w", err)
		}

		alloc := issue(c.Code, c.Counter(t)+1)
		if err := tx.Update(companyRef, []firestore.Update{{Path: t.CounterField(), Value: alloc.Identifier.Sequence}}); err != nil {
			return err
		}
		return tx.Update(recordRef, []firestore.Update{
			{Path: "doc_number", Value: alloc.Identifier.String()},
			{Path: "revision", Value: alloc.Revision.Label()},
			{Path: "review_date", Value: alloc.Revision.ReviewDateLabel()},
		})
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) || errors.Is(err, numbering.ErrAlreadyNumbered) || errors.Is(err, numbering.ErrCompanyNotFound) {
			return err
		}
		return fmt.Errorf("numbering transaction for %s/%s failed: %w", recordRef.Parent.ID, recordID, err)
	}
	return nil
}

func recordDoc(client *firestore.Client, t numbering.EntityType, recordID string) (*firestore.DocumentRef, error) {
	collection := models.CollectionFor(t)
	if collection == "" {
		return nil, fmt.Errorf("%w: %q", numbering.ErrUnknownEntityType, t)
	}
	return client.Collection(collection).Doc(recordID), nil
}

// RecordStore reads and stamps compliance records.
type RecordStore struct {
	client *firestore.Client
}

// NewRecordStore returns a RecordStore on client.
func NewRecordStore(client *firestore.Client) *RecordStore {
	return &RecordStore{client: client}
}

func (s *RecordStore) doc(t numbering.EntityType, recordID string) (*firestore.DocumentRef, error) {
	return recordDoc(s.client, t, recordID)
}

// GetRecord loads a record of type t.
func (s *RecordStore) GetRecord(ctx context.Context, t numbering.EntityType, recordID string) (models.Record, error) {
	ref, err := s.doc(t, recordID)
	if err != nil {
		return nil, err
	}
	rec, _ := models.NewRecord(t)
	snap, err := ref.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, ref.Parent.ID, recordID)
		}
		return nil, fmt.Errorf("failed to read %s/%s: %w", ref.Parent.ID, recordID, err)
	}
	if err := snap.DataTo(rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", ref.Parent.ID, recordID, err)
	}
	return rec, nil
}

// StampControl writes the allocated number and revision onto a record.
func (s *RecordStore) StampControl(ctx context.Context, t numbering.EntityType, recordID string, stamp models.ControlStamp) error {
	return s.update(ctx, t, recordID, []firestore.Update{
		{Path: "doc_number", Value: stamp.DocNumber},
		{Path: "revision", Value: stamp.Revision},
		{Path: "review_date", Value: stamp.ReviewDate},
	})
}

// SetExportURI records where the latest export of a record was stored.
func (s *RecordStore) SetExportURI(ctx context.Context, t numbering.EntityType, recordID, uri string) error {
	return s.update(ctx, t, recordID, []firestore.Update{{Path: "last_export_uri", Value: uri}})
}

func (s *RecordStore) update(ctx context.Context, t numbering.EntityType, recordID string, updates []firestore.Update) error {
	ref, err := s.doc(t, recordID)
	if err != nil {
		return err
	}
	if _, err := ref.Update(ctx, updates); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, ref.Parent.ID, recordID)
		}
		return fmt.Errorf("failed to update %s/%s: %w", ref.Parent.ID, recordID, err)
	}
	return nil
}

// ListRecordIDs returns the IDs of every record of type t owned by a company.
func (s *RecordStore) ListRecordIDs(ctx context.Context, companyID string, t numbering.EntityType) ([]string, error) {
	collection := models.CollectionFor(t)
	if collection == "" {
		return nil, fmt.Errorf("%w: %q", numbering.ErrUnknownEntityType, t)
	}
	iter := s.client.Collection(collection).
		Where("company_id", "==", companyID).
		Select().
		Documents(ctx)
	defer iter.Stop()

	var ids []string
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s for company %s: %w", collection, companyID, err)
		}
		ids = append(ids, snap.Ref.ID)
	}
	return ids, nil
}
