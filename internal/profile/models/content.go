package models

import (
	dErrors "fedcore/pkg/domain-errors"
)

const (
	ContentKeyEntity           = "entity"
	ContentKeyPreviousEntities = "previous_entities"
)

// Content is the JSON-like body of a profile info.
type Content map[string]any

// Has reports whether key is present, even with a nil value.
func (c Content) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Entity returns the canonical entity recorded in c. ok is false when the
// field is absent or not a string.
func (c Content) Entity() (Entity, bool) {
	s, ok := c[ContentKeyEntity].(string)
	if !ok || s == "" {
		return "", false
	}
	return Entity(s), true
}

// PreviousEntities decodes the migration history, most recent first.
// An absent field yields an empty history.
func (c Content) PreviousEntities() ([]Entity, error) {
	raw, ok := c[ContentKeyPreviousEntities]
	if !ok || raw == nil {
		return nil, nil
	}
	switch list := raw.(type) {
	case []Entity:
		return append([]Entity(nil), list...), nil
	case []string:
		return Entities(list...), nil
	case []any:
		out := make([]Entity, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, dErrors.New(dErrors.CodeValidation, "previous_entities must contain only strings")
			}
			out = append(out, Entity(s))
		}
		return out, nil
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "previous_entities must be a list")
	}
}

// WithPreviousEntities returns a copy of c with the history replaced. The list
// is stored as []any so in-memory and decoded JSON content compare equal.
func (c Content) WithPreviousEntities(history []Entity) Content {
	out := c.Clone()
	list := make([]any, 0, len(history))
	for _, e := range history {
		list = append(list, string(e))
	}
	out[ContentKeyPreviousEntities] = list
	return out
}

// Clone deep-copies maps and slices so stored content never aliases caller
// values.
func (c Content) Clone() Content {
	if c == nil {
		return Content{}
	}
	out := make(Content, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Content(t).Clone())
	case Content:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
