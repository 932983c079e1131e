package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/doccontrol/internal/models"
	"github.com/Lllllllleong/doccontrol/internal/services"
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleRevisionStatus", handleRevisionStatus)
}

// main is required by the Go Functions Framework.
func main() {}

// handleRevisionStatus reports the revision label and next review date for a
// creation date without allocating anything.
func handleRevisionStatus(w http.ResponseWriter, r *http.Request) {
	var req models.RevisionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := services.RevisionStatus(&req, time.Now())
	if err != nil {
		slog.Warn("Rejected revision status request", "error", err, "createdDate", req.CreatedDate)
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
