package handler

import (
	"strings"
	"time"

	"fedcore/internal/profile/models"
	dErrors "fedcore/pkg/domain-errors"
)

// UpdateProfileRequest is the body of PUT /profile.
type UpdateProfileRequest struct {
	Type    string         `json:"type"`
	Content map[string]any `json:"content"`
	Public  *bool          `json:"public,omitempty"`

	parsedType models.ProfileType
}

// Validate implements httputil.Validatable.
func (r *UpdateProfileRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Type = strings.TrimSpace(r.Type)
	typ, err := models.ParseProfileType(r.Type)
	if err != nil {
		return err
	}
	r.parsedType = typ
	if r.Content == nil {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	return nil
}

// ProfileResponse renders a current profile info.
type ProfileResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Public    bool           `json:"public"`
	Content   map[string]any `json:"content"`
	Version   int            `json:"version,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// VersionResponse renders one stored version.
type VersionResponse struct {
	Version   int            `json:"version"`
	Type      string         `json:"type"`
	Public    bool           `json:"public"`
	Content   map[string]any `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

// MigrationResponse summarizes an entity migration.
type MigrationResponse struct {
	OldEntity         string   `json:"old_entity"`
	NewEntity         string   `json:"new_entity"`
	PreviousEntities  []string `json:"previous_entities"`
	PostsRewritten    int64    `json:"posts_rewritten"`
	MentionsRewritten int64    `json:"mentions_rewritten"`
	PermissionsCopied int64    `json:"permissions_copied"`
	Notified          int      `json:"notified"`
}

// UpdateProfileResponse is returned by PUT /profile.
type UpdateProfileResponse struct {
	Profile   ProfileResponse    `json:"profile"`
	Created   bool               `json:"created"`
	Migration *MigrationResponse `json:"migration,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
}

func toProfileResponse(info *models.ProfileInfo, version int) ProfileResponse {
	return ProfileResponse{
		ID:        info.ID.String(),
		Type:      info.Type().URI(),
		Public:    info.Public,
		Content:   info.Content,
		Version:   version,
		UpdatedAt: info.UpdatedAt,
	}
}

func toUpdateResponse(res *models.UpdateResult) UpdateProfileResponse {
	out := UpdateProfileResponse{
		Profile: toProfileResponse(res.Profile, res.Version.Version),
		Created: res.Created,
	}
	if m := res.Migration; m != nil {
		history := make([]string, 0, len(m.PreviousEntities))
		for _, e := range m.PreviousEntities {
			history = append(history, e.String())
		}
		out.Migration = &MigrationResponse{
			OldEntity:         m.OldEntity.String(),
			NewEntity:         m.NewEntity.String(),
			PreviousEntities:  history,
			PostsRewritten:    m.PostsRewritten,
			MentionsRewritten: m.MentionsRewritten,
			PermissionsCopied: m.PermissionsCopied,
		}
		if res.Delivery != nil {
			out.Migration.Notified = res.Delivery.Delivered
		}
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	return out
}

func toVersionResponses(versions []*models.ProfileInfoVersion) []VersionResponse {
	out := make([]VersionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, VersionResponse{
			Version:   v.Version,
			Type:      models.ProfileType{Base: v.TypeBase, Version: v.TypeVersion}.URI(),
			Public:    v.Public,
			Content:   v.Content,
			CreatedAt: v.CreatedAt,
		})
	}
	return out
}
