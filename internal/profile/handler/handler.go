package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fedcore/internal/profile/lock"
	"fedcore/internal/profile/migration"
	"fedcore/internal/profile/models"
	"fedcore/internal/profile/versions"
	dErrors "fedcore/pkg/domain-errors"
	"fedcore/pkg/platform/httputil"
	"fedcore/pkg/requestcontext"
)

// Updater applies profile updates.
type Updater interface {
	UpdateProfile(ctx context.Context, typeURI string, content models.Content, opts ...migration.UpdateOption) (*models.UpdateResult, error)
}

// Reader serves current profiles and their history outside a transaction.
type Reader interface {
	Current(ctx context.Context, typ models.ProfileType) (*models.ProfileInfo, error)
	LatestVersion(ctx context.Context, info *models.ProfileInfo) (*models.ProfileInfoVersion, error)
	Versions(ctx context.Context, typ models.ProfileType) ([]*models.ProfileInfoVersion, error)
}

var _ Reader = (*versions.Store)(nil)

// Handler exposes profile updates over HTTP.
type Handler struct {
	updater Updater
	reader  Reader
	locker  lock.Locker
	logger  *slog.Logger
}

// New constructs a profile handler. Updates of one type base are serialized
// through locker.
func New(updater Updater, reader Reader, locker lock.Locker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		updater: updater,
		reader:  reader,
		locker:  locker,
		logger:  logger,
	}
}

// Register mounts profile endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Put("/profile", h.HandleUpdate)
	r.Get("/profile", h.HandleGet)
	r.Get("/profile/versions", h.HandleVersions)
}

// HandleUpdate handles PUT /profile.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := requestcontext.Now(ctx)

	req, ok := httputil.DecodeAndPrepare[UpdateProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var opts []migration.UpdateOption
	if req.Public != nil {
		opts = append(opts, migration.WithPublic(*req.Public))
	}

	var result *models.UpdateResult
	err := lock.Do(ctx, h.locker, req.parsedType.Base, func(ctx context.Context) error {
		var err error
		result, err = h.updater.UpdateProfile(ctx, req.Type, models.Content(req.Content), opts...)
		return err
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "profile update failed",
			"request_id", requestID,
			"type", req.Type,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "profile update handled",
		"request_id", requestID,
		"type", req.Type,
		"created", result.Created,
		"migrated", result.Migration != nil,
		"warnings", len(result.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, toUpdateResponse(result))
}

// HandleGet handles GET /profile?type=.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	typ, err := parseTypeQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	info, err := h.reader.Current(ctx, typ)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	latest, err := h.reader.LatestVersion(ctx, info)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProfileResponse(info, latest.Version))
}

// HandleVersions handles GET /profile/versions?type=.
func (h *Handler) HandleVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	typ, err := parseTypeQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	history, err := h.reader.Versions(ctx, typ)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"versions": toVersionResponses(history)})
}

func parseTypeQuery(r *http.Request) (models.ProfileType, error) {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		return models.ProfileType{}, dErrors.New(dErrors.CodeBadRequest, "type query parameter is required")
	}
	return models.ParseProfileType(raw)
}
