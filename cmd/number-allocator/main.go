package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/doccontrol/internal/models"
	"github.com/Lllllllleong/doccontrol/internal/services"
)

var (
	numberingInstance *services.NumberingFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("AllocateOnRecordCreated", allocateOnRecordCreated)
}

// main is required by the Go Functions Framework.
func main() {}

// allocateOnRecordCreated numbers a record when its creation event arrives.
// Requests that can never succeed are acknowledged so they are not redelivered.
func allocateOnRecordCreated(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		numberingInstance, initErr = services.NewNumbering(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var evt models.RecordCreatedEvent
	if err := e.DataAs(&evt); err != nil {
		slog.Error("Failed to decode event data", "error", err, "eventId", e.ID(), "data", string(e.Data()))
		return fmt.Errorf("decode event %s: %w", e.ID(), err)
	}

	_, err := numberingInstance.Process(ctx, &models.AllocateRequest{
		CompanyID:  evt.CompanyID,
		RecordID:   evt.RecordID,
		EntityType: evt.EntityType,
	})
	if err != nil {
		if services.IsClientError(err) || services.IsNotFound(err) {
			slog.Error("Dropping event that cannot be processed", "error", err, "eventId", e.ID())
			return nil
		}
		return err
	}
	return nil
}
