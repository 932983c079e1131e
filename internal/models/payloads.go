package models

// These structs define the JSON payloads exchanged with the Cloud Functions.

// RecordCreatedEvent is the CloudEvent data emitted when a compliance record
// is created.
type RecordCreatedEvent struct {
	CompanyID  string `json:"companyId"`
	RecordID   string `json:"recordId"`
	EntityType string `json:"entityType"`
}

// AllocateRequest asks for a document number for an existing record.
type AllocateRequest struct {
	CompanyID  string `json:"companyId"`
	RecordID   string `json:"recordId"`
	EntityType string `json:"entityType"`
}

// AllocateResponse is the output of the number allocator.
type AllocateResponse struct {
	Status     string `json:"status"`
	DocNumber  string `json:"docNumber"`
	Revision   string `json:"revision"`
	ReviewDate string `json:"reviewDate"`
	Fallback   bool   `json:"fallback"`
}

// ExportRequest is the input for the record-exporter function.
type ExportRequest struct {
	CompanyID  string `json:"companyId"`
	RecordID   string `json:"recordId"`
	EntityType string `json:"entityType"`
	Version    string `json:"version,omitempty"`
}

// ExportResponse is the output of the record-exporter function.
type ExportResponse struct {
	Status    string `json:"status"`
	DocNumber string `json:"docNumber"`
	Filename  string `json:"filename"`
	PageCount int    `json:"pageCount"`
	GCSUri    string `json:"gcsUri"`
}

// BatchExportRequest exports a register of records of one type.
type BatchExportRequest struct {
	CompanyID  string   `json:"companyId"`
	EntityType string   `json:"entityType"`
	RecordIDs  []string `json:"recordIds"`
	Version    string   `json:"version,omitempty"`
}

// BatchExportResult reports one record of a batch export.
type BatchExportResult struct {
	RecordID string `json:"recordId"`
	Filename string `json:"filename,omitempty"`
	GCSUri   string `json:"gcsUri,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BatchExportResponse is the output of a batch export.
type BatchExportResponse struct {
	Status   string              `json:"status"`
	Exported int                 `json:"exported"`
	Failed   int                 `json:"failed"`
	Results  []BatchExportResult `json:"results"`
}

// RevisionStatusRequest asks for the revision of a record created on CreatedDate.
// AsOf defaults to the current date.
type RevisionStatusRequest struct {
	CreatedDate string `json:"createdDate"`
	AsOf        string `json:"asOf,omitempty"`
}

// RevisionStatusResponse is the output of the revision-status function.
type RevisionStatusResponse struct {
	Revision       string `json:"revision"`
	RevisionNumber int    `json:"revisionNumber"`
	ReviewDate     string `json:"reviewDate"`
}
