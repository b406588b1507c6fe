// Package store implements the GORM-backed persistence for organizations,
// profiles, customers, data types and their entries. Every exported
// operation takes the resolved *access.Caller and enforces the access gate
// before touching rows.
package store

import (
	"context"
	"log/slog"

	"github.com/d9705996/tenantcrm/internal/events"
	"github.com/d9705996/tenantcrm/internal/field"
	"github.com/d9705996/tenantcrm/internal/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const instrumentationName = "github.com/d9705996/tenantcrm/internal/store"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	entriesWritten, _  = meter.Int64Counter("tenantcrm.entries.written", metric.WithDescription("Dynamic data entries created or updated."))
	entriesRejected, _ = meter.Int64Counter("tenantcrm.entries.rejected", metric.WithDescription("Entry submissions rejected by field validation."))
)

// DriftQueue schedules schema drift reports. worker.Queue satisfies it.
type DriftQueue interface {
	EnqueueSchemaDrift(ctx context.Context, args worker.SchemaDriftArgs) error
}

// Options configures a Store. Zero values are usable: no events, no drift
// jobs, permissive dropdowns.
type Options struct {
	Events        events.Publisher
	Jobs          DriftQueue
	StrictOptions bool
	Logger        *slog.Logger
}

// Store is the data access layer.
type Store struct {
	db        *gorm.DB
	events    events.Publisher
	jobs      DriftQueue
	validator field.Validator
	log       *slog.Logger
}

// New returns a Store over db.
func New(db *gorm.DB, opts Options) *Store {
	s := &Store{
		db:        db,
		events:    opts.Events,
		jobs:      opts.Jobs,
		validator: field.Validator{StrictOptions: opts.StrictOptions},
		log:       opts.Logger,
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// DB exposes the underlying handle for health checks and seeding.
func (s *Store) DB() *gorm.DB { return s.db }

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "store."+name, trace.WithAttributes(attrs...))
}

// endSpan records *errp on span and ends it. Use with a named error return:
//
//	defer endSpan(span, &err)
func endSpan(span trace.Span, errp *error) {
	if err := *errp; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
