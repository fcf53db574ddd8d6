package models

import (
	"net/url"
	"strings"

	dErrors "fedcore/pkg/domain-errors"
)

// Entity is the network identity of a participant, an absolute URI.
// Equality is exact string equality; no normalization is applied.
type Entity string

func (e Entity) String() string {
	return string(e)
}

func (e Entity) IsZero() bool {
	return e == ""
}

// ParseEntity validates raw as an absolute URI and returns it unchanged.
func ParseEntity(raw string) (Entity, error) {
	if strings.TrimSpace(raw) == "" {
		return "", dErrors.New(dErrors.CodeValidation, "entity is required")
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", dErrors.New(dErrors.CodeValidation, "entity must be an absolute URI: "+raw)
	}
	return Entity(raw), nil
}

// Entities converts raw strings into entities without validation.
func Entities(raw ...string) []Entity {
	out := make([]Entity, 0, len(raw))
	for _, r := range raw {
		out = append(out, Entity(r))
	}
	return out
}
