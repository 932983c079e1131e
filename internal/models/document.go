package models

import (
	"time"

	"github.com/Lllllllleong/doccontrol/internal/numbering"
)

// Firestore collections holding each record kind.
const (
	CompaniesCollection         = "companies"
	DocumentsCollection         = "documents"
	NCRsCollection              = "ncrs"
	AuditsCollection            = "audits"
	ManagementReviewsCollection = "management_reviews"
)

// CollectionFor returns the collection storing records of type t.
func CollectionFor(t numbering.EntityType) string {
	switch t {
	case numbering.EntityDocument:
		return DocumentsCollection
	case numbering.EntityNCR:
		return NCRsCollection
	case numbering.EntityAudit:
		return AuditsCollection
	case numbering.EntityManagementReview:
		return ManagementReviewsCollection
	}
	return ""
}

// Company is the tenant record. It owns the four numbering counters.
type Company struct {
	Code               string `firestore:"code,omitempty"`
	Name               string `firestore:"name,omitempty"`
	RegistrationNumber string `firestore:"registration_number,omitempty"`
	ContactEmail       string `firestore:"contact_email,omitempty"`
	ContactPhone       string `firestore:"contact_phone,omitempty"`
	DocCounter         int    `firestore:"doc_counter"`
	NCRCounter         int    `firestore:"ncr_counter"`
	AuditCounter       int    `firestore:"audit_counter"`
	ReviewCounter      int    `firestore:"review_counter"`
}

// Counter returns the stored counter for t.
func (c *Company) Counter(t numbering.EntityType) int {
	switch t {
	case numbering.EntityDocument:
		return c.DocCounter
	case numbering.EntityNCR:
		return c.NCRCounter
	case numbering.EntityAudit:
		return c.AuditCounter
	case numbering.EntityManagementReview:
		return c.ReviewCounter
	}
	return 0
}

// Counters converts the company into the numbering package's view.
func (c *Company) Counters() numbering.CompanyCounters {
	counters := make(map[numbering.EntityType]int, len(numbering.EntityTypes))
	for _, t := range numbering.EntityTypes {
		counters[t] = c.Counter(t)
	}
	return numbering.CompanyCounters{Code: c.Code, Counters: counters}
}

// RecordControl is the document-control metadata stamped on every record.
type RecordControl struct {
	CompanyID     string    `firestore:"company_id,omitempty"`
	DocNumber     string    `firestore:"doc_number,omitempty"`
	Revision      string    `firestore:"revision,omitempty"`
	ReviewDate    string    `firestore:"review_date,omitempty"`
	PreparedBy    string    `firestore:"prepared_by,omitempty"`
	LastExportURI string    `firestore:"last_export_uri,omitempty"`
	CreatedAt     time.Time `firestore:"created_at,omitempty"`
}

// ControlStamp is the set of control fields written when a number is allocated.
type ControlStamp struct {
	DocNumber  string
	Revision   string
	ReviewDate string
}

// Record is implemented by every numbered compliance record.
type Record interface {
	EntityType() numbering.EntityType
	RecordTitle() string
	Control() *RecordControl
}

// DocumentRecord is a controlled document such as a procedure or policy.
type DocumentRecord struct {
	RecordControl
	Title         string `firestore:"title,omitempty"`
	DocumentType  string `firestore:"document_type,omitempty"`
	ISOStandard   string `firestore:"iso_standard,omitempty"`
	ISOClause     string `firestore:"iso_clause,omitempty"`
	Department    string `firestore:"department,omitempty"`
	Owner         string `firestore:"owner,omitempty"`
	ApprovedBy    string `firestore:"approved_by,omitempty"`
	Status        string `firestore:"status,omitempty"`
	EffectiveDate string `firestore:"effective_date,omitempty"`
	Purpose       string `firestore:"purpose,omitempty"`
	Scope         string `firestore:"scope,omitempty"`
	Content       string `firestore:"content,omitempty"`
}

func (r *DocumentRecord) EntityType() numbering.EntityType { return numbering.EntityDocument }
func (r *DocumentRecord) RecordTitle() string              { return r.Title }
func (r *DocumentRecord) Control() *RecordControl          { return &r.RecordControl }

// NCRRecord is a non-conformance report.
type NCRRecord struct {
	RecordControl
	Title            string `firestore:"title,omitempty"`
	Severity         string `firestore:"severity,omitempty"`
	Status           string `firestore:"status,omitempty"`
	Source           string `firestore:"source,omitempty"`
	Department       string `firestore:"department,omitempty"`
	ISOClause        string `firestore:"iso_clause,omitempty"`
	RaisedBy         string `firestore:"raised_by,omitempty"`
	DateRaised       string `firestore:"date_raised,omitempty"`
	AssignedTo       string `firestore:"assigned_to,omitempty"`
	DueDate          string `firestore:"due_date,omitempty"`
	Description      string `firestore:"description,omitempty"`
	RootCause        string `firestore:"root_cause,omitempty"`
	CorrectiveAction string `firestore:"corrective_action,omitempty"`
}

func (r *NCRRecord) EntityType() numbering.EntityType { return numbering.EntityNCR }
func (r *NCRRecord) RecordTitle() string              { return r.Title }
func (r *NCRRecord) Control() *RecordControl          { return &r.RecordControl }

// AuditFinding is one row of an audit's findings table.
type AuditFinding struct {
	Clause      string `firestore:"clause,omitempty"`
	Type        string `firestore:"type,omitempty"`
	Description string `firestore:"description,omitempty"`
	Status      string `firestore:"status,omitempty"`
}

// AuditRecord is an internal or external audit.
type AuditRecord struct {
	RecordControl
	Title       string         `firestore:"title,omitempty"`
	AuditType   string         `firestore:"audit_type,omitempty"`
	ISOStandard string         `firestore:"iso_standard,omitempty"`
	Scope       string         `firestore:"scope,omitempty"`
	LeadAuditor string         `firestore:"lead_auditor,omitempty"`
	AuditTeam   string         `firestore:"audit_team,omitempty"`
	AuditDate   string         `firestore:"audit_date,omitempty"`
	Department  string         `firestore:"department,omitempty"`
	Status      string         `firestore:"status,omitempty"`
	Summary     string         `firestore:"summary,omitempty"`
	Findings    []AuditFinding `firestore:"findings,omitempty"`
	Conclusion  string         `firestore:"conclusion,omitempty"`
}

func (r *AuditRecord) EntityType() numbering.EntityType { return numbering.EntityAudit }
func (r *AuditRecord) RecordTitle() string              { return r.Title }
func (r *AuditRecord) Control() *RecordControl          { return &r.RecordControl }

// ReviewAction is a follow-up action agreed at a management review.
type ReviewAction struct {
	Description string `firestore:"description,omitempty"`
	Owner       string `firestore:"owner,omitempty"`
	DueDate     string `firestore:"due_date,omitempty"`
	Status      string `firestore:"status,omitempty"`
}

// ManagementReviewRecord is the minutes of a management review meeting.
type ManagementReviewRecord struct {
	RecordControl
	Title           string         `firestore:"title,omitempty"`
	MeetingDate     string         `firestore:"meeting_date,omitempty"`
	Chairperson     string         `firestore:"chairperson,omitempty"`
	Attendees       []string       `firestore:"attendees,omitempty"`
	Status          string         `firestore:"status,omitempty"`
	NextMeetingDate string         `firestore:"next_meeting_date,omitempty"`
	AgendaItems     []string       `firestore:"agenda_items,omitempty"`
	Minutes         string         `firestore:"minutes,omitempty"`
	Decisions       string         `firestore:"decisions,omitempty"`
	Actions         []ReviewAction `firestore:"actions,omitempty"`
}

func (r *ManagementReviewRecord) EntityType() numbering.EntityType {
	return numbering.EntityManagementReview
}
func (r *ManagementReviewRecord) RecordTitle() string     { return r.Title }
func (r *ManagementReviewRecord) Control() *RecordControl { return &r.RecordControl }

// NewRecord returns an empty record of type t for decoding.
func NewRecord(t numbering.EntityType) (Record, bool) {
	switch t {
	case numbering.EntityDocument:
		return &DocumentRecord{}, true
	case numbering.EntityNCR:
		return &NCRRecord{}, true
	case numbering.EntityAudit:
		return &AuditRecord{}, true
	case numbering.EntityManagementReview:
		return &ManagementReviewRecord{}, true
	}
	return nil, false
}
