package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/d9705996/tenantcrm/internal/model"
	"github.com/riverqueue/river"
	"gorm.io/gorm"
)

const driftBatchSize = 500

// SchemaDriftArgs identifies a data type whose field list was replaced.
type SchemaDriftArgs struct {
	DataTypeID    string   `json:"data_type_id"`
	Version       int      `json:"version"`
	DroppedFields []string `json:"dropped_fields,omitempty"`
}

// Kind returns the unique job type identifier for schema drift jobs.
func (SchemaDriftArgs) Kind() string { return "schema_drift" }

// DriftReport summarises entries that no longer match their data type.
type DriftReport struct {
	DataTypeID string
	Version    int
	Entries    int
	// Stale counts entries validated against an older schema version.
	Stale int
	// WithDroppedKeys counts entries still holding values for fields that
	// were removed; those values are no longer reachable through the schema.
	WithDroppedKeys int
}

// Log writes the report, as a warning when data was left behind.
func (r DriftReport) Log(log *slog.Logger) {
	attrs := []any{
		"data_type_id", r.DataTypeID,
		"version", r.Version,
		"entries", r.Entries,
		"stale", r.Stale,
		"with_dropped_keys", r.WithDroppedKeys,
	}
	if r.WithDroppedKeys > 0 {
		log.Warn("schema drift: entries hold values for removed fields", attrs...)
		return
	}
	log.Info("schema drift report", attrs...)
}

// CheckSchemaDrift scans the entries of a data type and counts those that
// predate args.Version or still carry keys in args.DroppedFields.
func CheckSchemaDrift(ctx context.Context, db *gorm.DB, args SchemaDriftArgs) (DriftReport, error) {
	report := DriftReport{DataTypeID: args.DataTypeID, Version: args.Version}

	var batch []model.DynamicDataEntry
	res := db.WithContext(ctx).
		Where("data_type_id = ?", args.DataTypeID).
		FindInBatches(&batch, driftBatchSize, func(_ *gorm.DB, _ int) error {
			for _, e := range batch {
				report.Entries++
				if e.SchemaVersion < args.Version {
					report.Stale++
				}
				for _, name := range args.DroppedFields {
					if _, ok := e.Data[name]; ok {
						report.WithDroppedKeys++
						break
					}
				}
			}
			return nil
		})
	if res.Error != nil {
		return DriftReport{}, fmt.Errorf("scan entries for drift: %w", res.Error)
	}
	return report, nil
}

type schemaDriftWorker struct {
	river.WorkerDefaults[SchemaDriftArgs]
	db  *gorm.DB
	log *slog.Logger
}

func (w *schemaDriftWorker) Work(ctx context.Context, job *river.Job[SchemaDriftArgs]) error {
	report, err := CheckSchemaDrift(ctx, w.db, job.Args)
	if err != nil {
		return err
	}
	report.Log(w.log)
	return nil
}
