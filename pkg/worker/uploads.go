package worker

import (
	"context"

	"github.com/Gobusters/ectologger"

	appcontext "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/lifecycle"
	"github.com/Ramsey-B/clover/pkg/models"
)

// NewUploadHandler returns the consumer handler that turns menu upload
// notifications into pending ingest jobs. A returned error leaves the
// message uncommitted for redelivery.
func NewUploadHandler(controller *lifecycle.Controller, logger ectologger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.IncomingMessage) error {
		upload := msg.Upload
		ctx = appcontext.SetTenantID(ctx, upload.TenantID)

		job, err := controller.CreateJob(ctx, upload.TenantID, &models.CreateIngestJobRequest{
			VenueID:   upload.VenueID,
			FilePath:  upload.FilePath,
			CreatedBy: upload.UploadedBy,
		})
		if err != nil {
			logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"venue_id":  upload.VenueID,
				"file_path": upload.FilePath,
			}).Error("Failed to create ingest job from upload")
			return err
		}

		logger.WithContext(ctx).WithFields(map[string]any{
			"job_id":   job.ID,
			"venue_id": job.VenueID,
		}).Info("Created ingest job from upload")
		return nil
	}
}
