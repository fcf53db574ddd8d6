// Package notify computes the recipients of a profile change and emits the
// in-process trigger plus one outbound notification per recipient.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"fedcore/internal/profile/models"
	dErrors "fedcore/pkg/domain-errors"
	pstrings "fedcore/pkg/platform/strings"
)

//go:generate mockgen -source=dispatcher.go -destination=mocks/mocks.go -package=mocks

// Notifier is the outbound port. Trigger reaches in-process subscribers;
// NotifyEntity hands one notification to the federation transport.
type Notifier interface {
	Trigger(ctx context.Context, event string, payload models.ProfileChange) error
	NotifyEntity(ctx context.Context, notification models.EntityNotification) error
}

// MentionLookup returns the distinct entities mentioned by owner's posts.
type MentionLookup interface {
	MentionedBy(ctx context.Context, owner models.Entity) ([]models.Entity, error)
}

// FollowerLookup returns the distinct followers of any of the given entities.
type FollowerLookup interface {
	FindFollowers(ctx context.Context, followed []models.Entity) ([]models.Entity, error)
}

// Metrics receives dispatch outcomes.
type Metrics interface {
	IncNotificationsSent()
	IncNotificationsFailed()
	ObserveDispatch(start time.Time)
}

const defaultConcurrency = 8

// Dispatcher fans a profile change out to mentioned entities and followers.
type Dispatcher struct {
	mentions    MentionLookup
	followers   FollowerLookup
	notifier    Notifier
	logger      *slog.Logger
	metrics     Metrics
	tracer      trace.Tracer
	concurrency int
	newEventID  func() uuid.UUID
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithConcurrency caps in-flight NotifyEntity calls.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithEventIDs overrides event id generation.
func WithEventIDs(gen func() uuid.UUID) Option {
	return func(d *Dispatcher) {
		if gen != nil {
			d.newEventID = gen
		}
	}
}

// New constructs a Dispatcher.
func New(mentions MentionLookup, followers FollowerLookup, notifier Notifier, opts ...Option) (*Dispatcher, error) {
	if mentions == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "mention lookup is required")
	}
	if followers == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "follower lookup is required")
	}
	if notifier == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "notifier is required")
	}
	d := &Dispatcher{
		mentions:    mentions,
		followers:   followers,
		notifier:    notifier,
		tracer:      otel.Tracer("fedcore/profile/notify"),
		concurrency: defaultConcurrency,
		newEventID:  uuid.New,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Recipients returns the deduplicated union of entities mentioned by the
// profile entity's posts and the entity's followers. The entity itself, and
// its previous address on migration, are never recipients.
func (d *Dispatcher) Recipients(ctx context.Context, info *models.ProfileInfo, change models.ChangeSet) ([]models.Entity, error) {
	self, ok := info.Entity()
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "profile info has no entity")
	}

	mentioned, err := d.mentions.MentionedBy(ctx, self)
	if err != nil {
		return nil, err
	}

	// followings are not rewritten on migration, so subscribers may still point
	// at the old address
	followed := []models.Entity{self}
	exclude := []models.Entity{self}
	if change.EntityChanged && !change.OldEntity.IsZero() && change.OldEntity != self {
		followed = append(followed, change.OldEntity)
		exclude = append(exclude, change.OldEntity)
	}
	followers, err := d.followers.FindFollowers(ctx, followed)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find followers")
	}

	return pstrings.Union(mentioned, followers).Excluding(exclude...), nil
}

// Notify emits exactly one trigger and at most one NotifyEntity per recipient.
// Per-recipient failures are collected in the report and do not stop other
// deliveries. The returned error is only set when the recipient set itself
// could not be computed, in which case nothing was emitted.
func (d *Dispatcher) Notify(ctx context.Context, info *models.ProfileInfo, change models.ChangeSet) (*models.DeliveryReport, error) {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "notify.Dispatch", trace.WithAttributes(
		attribute.String("type_base", info.TypeBase),
		attribute.Bool("entity_changed", change.EntityChanged),
	))
	defer span.End()
	if d.metrics != nil {
		defer d.metrics.ObserveDispatch(start)
	}

	recipients, err := d.Recipients(ctx, info, change)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recipient lookup failed")
		return nil, dErrors.Wrap(err, dErrors.CodeNotificationDelivery, "failed to compute notification recipients")
	}
	self, _ := info.Entity()

	report := &models.DeliveryReport{
		EventID:    d.newEventID(),
		Recipients: recipients,
	}
	span.SetAttributes(
		attribute.String("event_id", report.EventID.String()),
		attribute.Int("recipients", len(recipients)),
	)

	change.OldEntity = oldEntityFor(change)
	if err := d.notifier.Trigger(ctx, models.ProfileChangedEvent, models.ProfileChange{
		EventID:       report.EventID,
		Entity:        self,
		OldEntity:     change.OldEntity,
		EntityChanged: change.EntityChanged,
		Type:          info.Type().URI(),
	}); err != nil {
		report.TriggerErr = err
		d.logWarn(ctx, "profile change trigger failed", "entity", self, "error", err)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(d.concurrency)
	for _, recipient := range recipients {
		g.Go(func() error {
			err := d.notifier.NotifyEntity(ctx, models.EntityNotification{
				EventID:      report.EventID,
				Entity:       recipient,
				SourceEntity: self,
				OldEntity:    change.OldEntity,
				Type:         info.Type().URI(),
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures = append(report.Failures, models.DeliveryFailure{Recipient: recipient, Err: err})
				d.incFailed()
				d.logWarn(ctx, "entity notification failed",
					"entity", self,
					"recipient", recipient,
					"error", err,
				)
				return nil
			}
			report.Delivered++
			d.incSent()
			return nil
		})
	}
	_ = g.Wait()

	if !report.OK() {
		span.SetStatus(codes.Error, "notification delivery incomplete")
	}
	return report, nil
}

func oldEntityFor(change models.ChangeSet) models.Entity {
	if !change.EntityChanged {
		return ""
	}
	return change.OldEntity
}

func (d *Dispatcher) logWarn(ctx context.Context, msg string, args ...any) {
	if d.logger != nil {
		d.logger.WarnContext(ctx, msg, args...)
	}
}

func (d *Dispatcher) incSent() {
	if d.metrics != nil {
		d.metrics.IncNotificationsSent()
	}
}

func (d *Dispatcher) incFailed() {
	if d.metrics != nil {
		d.metrics.IncNotificationsFailed()
	}
}
