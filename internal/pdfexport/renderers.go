package pdfexport

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/doccontrol/internal/models"
)

// block is one step of a record layout. Exactly one of its kinds is used.
type block struct {
	heading string
	field   *fieldSpec
	section *sectionSpec
	table   *tableSpec
	callout *calloutSpec
}

type fieldSpec struct {
	label string
	value func() string
}

// sectionSpec is a heading followed by a paragraph, drawn only when the
// paragraph has text.
type sectionSpec struct {
	heading string
	value   func() string
}

type tableSpec struct {
	headers []string
	rows    func() [][]string
	// empty is printed instead of the table when there are no rows.
	empty string
}

type calloutSpec struct {
	kind  CalloutKind
	value func() string
}

func heading(text string) block { return block{heading: text} }

func field(label string, value func() string) block {
	return block{field: &fieldSpec{label: label, value: value}}
}

func section(heading string, value func() string) block {
	return block{section: &sectionSpec{heading: heading, value: value}}
}

func table(headers []string, rows func() [][]string, empty string) block {
	return block{table: &tableSpec{headers: headers, rows: rows, empty: empty}}
}

func callout(kind CalloutKind, value func() string) block {
	return block{callout: &calloutSpec{kind: kind, value: value}}
}

// layout draws blocks in order.
func layout(blocks []block) ContentFunc {
	return func(s *Session, y float64) (float64, error) {
		for _, b := range blocks {
			switch {
			case b.heading != "":
				y = s.NumberedHeading(y, b.heading)
			case b.field != nil:
				y = s.Field(y, b.field.label, b.field.value())
			case b.section != nil:
				v := strings.TrimSpace(b.section.value())
				if v == "" {
					continue
				}
				y = s.NumberedHeading(y, b.section.heading)
				y = s.Paragraph(y, v, ParagraphStyle{})
			case b.table != nil:
				rows := b.table.rows()
				if len(rows) == 0 {
					if b.table.empty != "" {
						muted := s.theme.Muted
						y = s.Paragraph(y, b.table.empty, ParagraphStyle{Color: &muted})
					}
					continue
				}
				y = s.Table(y, b.table.headers, rows)
			case b.callout != nil:
				y = s.Callout(y, b.callout.value(), b.callout.kind)
			}
			if err := s.Err(); err != nil {
				return y, err
			}
		}
		return y, nil
	}
}

// Renderer is the export recipe for one record.
type Renderer struct {
	// TitlePrefix names the record kind in the page header.
	TitlePrefix string
	TypeLabel   string
	Content     ContentFunc
}

// HeaderTitle is the title printed in every page header.
func (r Renderer) HeaderTitle(recordTitle string) string {
	return r.TitlePrefix + ": " + recordTitle
}

// RendererFor returns the layout of rec. Records without a title cannot be
// exported.
func RendererFor(rec models.Record) (Renderer, error) {
	if rec == nil {
		return Renderer{}, &RenderError{Err: fmt.Errorf("nil record")}
	}
	ctl := rec.Control()
	if strings.TrimSpace(rec.RecordTitle()) == "" {
		return Renderer{}, &RenderError{DocNumber: ctl.DocNumber, Err: ErrMissingTitle}
	}

	switch r := rec.(type) {
	case *models.DocumentRecord:
		return Renderer{TitlePrefix: "Document", TypeLabel: "Document", Content: layout(documentBlocks(r))}, nil
	case *models.NCRRecord:
		return Renderer{TitlePrefix: "Non-Conformance Report", TypeLabel: "NCR", Content: layout(ncrBlocks(r))}, nil
	case *models.AuditRecord:
		return Renderer{TitlePrefix: "Audit Report", TypeLabel: "Audit", Content: layout(auditBlocks(r))}, nil
	case *models.ManagementReviewRecord:
		return Renderer{TitlePrefix: "Management Review", TypeLabel: "Management Review", Content: layout(reviewBlocks(r))}, nil
	}
	return Renderer{}, &RenderError{DocNumber: ctl.DocNumber, Err: fmt.Errorf("unsupported record type %T", rec)}
}

func str(v string) func() string { return func() string { return v } }

func controlBlocks(c *models.RecordControl) []block {
	created := ""
	if !c.CreatedAt.IsZero() {
		created = c.CreatedAt.Format("2 January 2006")
	}
	return []block{
		heading("Document Control"),
		field("Document Number", str(c.DocNumber)),
		field("Revision", str(c.Revision)),
		field("Next Review", str(c.ReviewDate)),
		field("Prepared By", str(c.PreparedBy)),
		field("Date Created", str(created)),
	}
}

func documentBlocks(r *models.DocumentRecord) []block {
	blocks := controlBlocks(&r.RecordControl)
	return append(blocks,
		heading("Document Details"),
		field("Title", str(r.Title)),
		field("Document Type", str(r.DocumentType)),
		field("ISO Standard", str(r.ISOStandard)),
		field("ISO Clause", str(r.ISOClause)),
		field("Department", str(r.Department)),
		field("Owner", str(r.Owner)),
		field("Approved By", str(r.ApprovedBy)),
		field("Status", str(r.Status)),
		field("Effective Date", str(r.EffectiveDate)),
		section("Purpose", str(r.Purpose)),
		section("Scope", str(r.Scope)),
		section("Content", str(r.Content)),
		callout(CalloutImportant, str("This document is controlled. Changes must be approved and re-issued under a new revision.")),
	)
}

func ncrBlocks(r *models.NCRRecord) []block {
	return []block{
		heading("NCR Details"),
		field("NCR Number", str(r.DocNumber)),
		field("Severity", str(r.Severity)),
		field("Status", str(r.Status)),
		field("Source", str(r.Source)),
		field("Department", str(r.Department)),
		field("ISO Clause", str(r.ISOClause)),
		field("Raised By", str(r.RaisedBy)),
		field("Date Raised", str(r.DateRaised)),
		section("Description", str(r.Description)),
		section("Root Cause", str(r.RootCause)),
		section("Corrective Action", str(r.CorrectiveAction)),
		heading("Assignment"),
		field("Assigned To", str(r.AssignedTo)),
		field("Due Date", str(r.DueDate)),
	}
}

func auditBlocks(r *models.AuditRecord) []block {
	findingRows := func() [][]string {
		rows := make([][]string, 0, len(r.Findings))
		for _, f := range r.Findings {
			rows = append(rows, []string{orNA(f.Clause), orNA(f.Type), orNA(f.Description), orNA(f.Status)})
		}
		return rows
	}
	return []block{
		heading("Audit Details"),
		field("Audit Number", str(r.DocNumber)),
		field("Audit Type", str(r.AuditType)),
		field("ISO Standard", str(r.ISOStandard)),
		field("Audit Date", str(r.AuditDate)),
		field("Lead Auditor", str(r.LeadAuditor)),
		field("Audit Team", str(r.AuditTeam)),
		field("Department", str(r.Department)),
		field("Status", str(r.Status)),
		section("Scope", str(r.Scope)),
		section("Summary", str(r.Summary)),
		heading("Findings"),
		table([]string{"Clause", "Type", "Description", "Status"}, findingRows, "No findings were recorded."),
		section("Conclusion", str(r.Conclusion)),
	}
}

func reviewBlocks(r *models.ManagementReviewRecord) []block {
	actionRows := func() [][]string {
		rows := make([][]string, 0, len(r.Actions))
		for _, a := range r.Actions {
			rows = append(rows, []string{orNA(a.Description), orNA(a.Owner), orNA(a.DueDate), orNA(a.Status)})
		}
		return rows
	}
	agenda := func() string {
		items := make([]string, 0, len(r.AgendaItems))
		for i, item := range r.AgendaItems {
			items = append(items, fmt.Sprintf("%d. %s", i+1, item))
		}
		return strings.Join(items, "\n")
	}
	return []block{
		heading("Meeting Details"),
		field("Review Number", str(r.DocNumber)),
		field("Meeting Date", str(r.MeetingDate)),
		field("Chairperson", str(r.Chairperson)),
		field("Status", str(r.Status)),
		field("Next Meeting", str(r.NextMeetingDate)),
		section("Attendees", str(strings.Join(r.Attendees, ", "))),
		section("Agenda", agenda),
		section("Minutes", str(r.Minutes)),
		heading("Actions"),
		table([]string{"Action", "Owner", "Due Date", "Status"}, actionRows, "No actions were raised."),
		callout(CalloutNote, str(r.Decisions)),
	}
}
