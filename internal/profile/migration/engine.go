// Package migration applies profile updates and, when the core profile's
// entity changes, rewrites every reference to the old address before
// notifying interested entities.
package migration

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fedcore/internal/profile/mention"
	"fedcore/internal/profile/models"
	"fedcore/internal/profile/versions"
	dErrors "fedcore/pkg/domain-errors"
	"fedcore/pkg/platform/sentinel"
)

// Metrics receives engine outcomes.
type Metrics interface {
	IncProfileUpdate(outcome string)
	IncMigration()
	AddRewrites(posts, mentions int64)
	ObserveUpdate(start time.Time)
}

const (
	outcomeCreated  = "created"
	outcomeUpdated  = "updated"
	outcomeMigrated = "migrated"
	outcomeFailed   = "failed"
)

// Engine orchestrates profile updates. It does not serialize callers:
// concurrent migrations of the same entity must be prevented by the host.
type Engine struct {
	tx         StoreTx
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    Metrics
	tracer     trace.Tracer
	clock      func() time.Time
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides time.Now for profile and version timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// New constructs an Engine.
func New(tx StoreTx, dispatcher Dispatcher, opts ...Option) (*Engine, error) {
	if tx == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "store transaction is required")
	}
	if dispatcher == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "dispatcher is required")
	}
	e := &Engine{
		tx:         tx,
		dispatcher: dispatcher,
		tracer:     otel.Tracer("fedcore/profile/migration"),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type updateConfig struct {
	putOpts []versions.PutOption
}

type UpdateOption func(*updateConfig)

// WithPublic sets the public flag of the stored profile info.
func WithPublic(public bool) UpdateOption {
	return func(c *updateConfig) {
		c.putOpts = append(c.putOpts, versions.WithPublic(public))
	}
}

// UpdateProfile stores content as the current profile info of typeURI.
//
// For the core type, a changed entity is a migration: original posts and
// mentions are rewritten to the new address, permissions are copied, the old
// address is prepended to previous_entities and the new version is written,
// all in one transaction. Interested entities are notified after commit;
// delivery failures end up in UpdateResult.Warnings and never undo the update.
func (e *Engine) UpdateProfile(ctx context.Context, typeURI string, content models.Content, opts ...UpdateOption) (*models.UpdateResult, error) {
	start := e.clock()
	if e.metrics != nil {
		defer e.metrics.ObserveUpdate(start)
	}

	typ, err := models.ParseProfileType(typeURI)
	if err != nil {
		return nil, err
	}
	var cfg updateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, span := e.tracer.Start(ctx, "migration.UpdateProfile", trace.WithAttributes(
		attribute.String("type_base", typ.Base),
		attribute.String("type_version", typ.Version),
	))
	defer span.End()

	var result *models.UpdateResult
	err = e.tx.RunInTx(ctx, func(stores Stores) error {
		var txErr error
		result, txErr = e.apply(ctx, stores, typ, content, cfg)
		return txErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile update failed")
		e.incUpdate(outcomeFailed)
		e.logError(ctx, "profile update failed", "type_base", typ.Base, "error", err)
		return nil, classify(err)
	}

	if result.Migration == nil {
		outcome := outcomeUpdated
		if result.Created {
			outcome = outcomeCreated
		}
		e.incUpdate(outcome)
		e.logInfo(ctx, "profile updated",
			"type_base", typ.Base,
			"version", result.Version.Version,
			"created", result.Created,
		)
		return result, nil
	}

	mig := result.Migration
	e.incUpdate(outcomeMigrated)
	if e.metrics != nil {
		e.metrics.IncMigration()
		e.metrics.AddRewrites(mig.PostsRewritten, mig.MentionsRewritten)
	}
	span.SetAttributes(
		attribute.String("old_entity", mig.OldEntity.String()),
		attribute.String("new_entity", mig.NewEntity.String()),
	)
	e.logInfo(ctx, "entity migrated",
		"old_entity", mig.OldEntity,
		"entity", mig.NewEntity,
		"posts_rewritten", mig.PostsRewritten,
		"mentions_rewritten", mig.MentionsRewritten,
		"permissions_copied", mig.PermissionsCopied,
		"version", result.Version.Version,
	)

	e.notify(ctx, result)
	return result, nil
}

// apply runs inside the transaction.
func (e *Engine) apply(ctx context.Context, stores Stores, typ models.ProfileType, content models.Content, cfg updateConfig) (*models.UpdateResult, error) {
	vs := versions.New(stores.ProfileInfos(), versions.WithClock(e.clock))

	if !typ.IsCore() {
		return put(ctx, vs, typ, content, cfg, nil)
	}

	current, err := vs.Current(ctx, typ)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// first publish: nothing to migrate from
			return put(ctx, vs, typ, content, cfg, nil)
		}
		return nil, err
	}

	plan, err := planUpdate(current.Content, content)
	if err != nil {
		return nil, err
	}
	if plan.migration == nil {
		return put(ctx, vs, typ, plan.content, cfg, nil)
	}

	mig := plan.migration
	mig.PostsRewritten, err = stores.Posts().RewriteOriginalEntity(ctx, mig.OldEntity, mig.NewEntity)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rewrite posts")
	}
	mig.MentionsRewritten, err = mention.NewIndex(stores.Mentions()).Rewrite(ctx, mig.OldEntity, mig.NewEntity)
	if err != nil {
		return nil, err
	}
	mig.PermissionsCopied, err = stores.Permissions().Copy(ctx, mig.OldEntity, mig.NewEntity)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to copy permissions")
	}
	return put(ctx, vs, typ, plan.content, cfg, mig)
}

func put(ctx context.Context, vs *versions.Store, typ models.ProfileType, content models.Content, cfg updateConfig, mig *models.Migration) (*models.UpdateResult, error) {
	res, err := vs.Put(ctx, typ, content, cfg.putOpts...)
	if err != nil {
		return nil, err
	}
	return &models.UpdateResult{
		Profile:   res.Profile,
		Version:   res.Version,
		Created:   res.IsNew,
		Migration: mig,
	}, nil
}

type updatePlan struct {
	content   models.Content
	migration *models.Migration
}

// planUpdate decides between a plain update and a migration.
//
//   - entity omitted or null: the current entity and history are carried over
//   - entity unchanged: the current history is kept, a supplied one is ignored
//   - entity changed: the old entity is prepended to the supplied history
func planUpdate(current, incoming models.Content) (updatePlan, error) {
	if incoming[models.ContentKeyEntity] == nil {
		merged := incoming.Clone()
		delete(merged, models.ContentKeyEntity)
		return updatePlan{content: carryOver(current, merged,
			models.ContentKeyEntity, models.ContentKeyPreviousEntities)}, nil
	}

	if reflect.DeepEqual(normalize(current[models.ContentKeyEntity]), normalize(incoming[models.ContentKeyEntity])) {
		merged := incoming.Clone()
		delete(merged, models.ContentKeyPreviousEntities)
		return updatePlan{content: carryOver(current, merged, models.ContentKeyPreviousEntities)}, nil
	}

	oldEntity, ok := current.Entity()
	if !ok {
		// no address yet, so nothing refers to one
		return updatePlan{content: incoming}, nil
	}
	rawNew, _ := incoming[models.ContentKeyEntity].(string)
	newEntity, err := models.ParseEntity(rawNew)
	if err != nil {
		return updatePlan{}, err
	}
	supplied, err := incoming.PreviousEntities()
	if err != nil {
		return updatePlan{}, err
	}

	history := make([]models.Entity, 0, len(supplied)+1)
	history = append(history, oldEntity)
	history = append(history, supplied...)

	return updatePlan{
		content: incoming.WithPreviousEntities(history),
		migration: &models.Migration{
			OldEntity:        oldEntity,
			NewEntity:        newEntity,
			PreviousEntities: history,
		},
	}, nil
}

// carryOver copies keys from current into merged where merged lacks them.
func carryOver(current, merged models.Content, keys ...string) models.Content {
	for _, key := range keys {
		if v, ok := current[key]; ok && !merged.Has(key) {
			merged[key] = v
		}
	}
	return merged
}

// normalize makes []string and decoded []any lists comparable.
func normalize(v any) any {
	if list, ok := v.([]string); ok {
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	}
	return v
}

// notify runs after commit. Its failures are reported, never returned.
func (e *Engine) notify(ctx context.Context, result *models.UpdateResult) {
	report, err := e.dispatcher.Notify(ctx, result.Profile, models.ChangeSet{
		EntityChanged: true,
		OldEntity:     result.Migration.OldEntity,
	})
	if err != nil {
		result.Warnings = append(result.Warnings, err)
		e.logWarn(ctx, "migration notifications skipped",
			"entity", result.Migration.NewEntity,
			"error", err,
		)
		return
	}
	result.Delivery = report
	if report.TriggerErr != nil {
		result.Warnings = append(result.Warnings,
			dErrors.Wrap(report.TriggerErr, dErrors.CodeNotificationDelivery, "profile change trigger failed"))
	}
	for _, f := range report.Failures {
		result.Warnings = append(result.Warnings,
			dErrors.Wrap(f.Err, dErrors.CodeNotificationDelivery, "notify "+f.Recipient.String()+" failed"))
	}
}

// classify keeps coded errors and codes everything else.
func classify(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "profile update timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "profile update failed")
	}
}

func (e *Engine) incUpdate(outcome string) {
	if e.metrics != nil {
		e.metrics.IncProfileUpdate(outcome)
	}
}

func (e *Engine) logInfo(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.InfoContext(ctx, msg, args...)
	}
}

func (e *Engine) logWarn(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.WarnContext(ctx, msg, args...)
	}
}

func (e *Engine) logError(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.ErrorContext(ctx, msg, args...)
	}
}
