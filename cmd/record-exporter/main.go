package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/doccontrol/internal/models"
	"github.com/Lllllllleong/doccontrol/internal/services"
)

var (
	exporterInstance *services.ExportFunction
	once             sync.Once
	initErr          error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleExportRecord", handleExportRecord)
	functions.HTTP("HandleExportRegister", handleExportRegister)
}

// main is required by the Go Functions Framework.
func main() {}

func instance(w http.ResponseWriter) bool {
	once.Do(func() {
		exporterInstance, initErr = services.NewExporter(context.Background())
	})
	if initErr != nil {
		slog.Error("CRITICAL: Exporter initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return false
	}
	return true
}

// handleExportRecord renders one record and returns where the PDF was stored.
func handleExportRecord(w http.ResponseWriter, r *http.Request) {
	if !instance(w) {
		return
	}
	var req models.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := exporterInstance.Process(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, res)
}

// handleExportRegister exports every listed record, or all records of a type.
func handleExportRegister(w http.ResponseWriter, r *http.Request) {
	if !instance(w) {
		return
	}
	var req models.BatchExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := exporterInstance.ProcessBatch(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, res)
}

// writeError maps a processing error to a status code. The error itself is
// already logged inside the service.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case services.IsClientError(err):
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
	case services.IsNotFound(err):
		http.Error(w, "Not Found: "+err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
