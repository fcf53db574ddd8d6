package models

import (
	"strings"

	dErrors "fedcore/pkg/domain-errors"
)

// CoreProfileTypeBase identifies the profile info type that carries an
// entity's own canonical address and its migration history.
const CoreProfileTypeBase = "https://tent.io/types/info/core"

// ProfileType is a profile info type URI split into its base and version
// selector: "https://tent.io/types/info/core/v0.1.0" has base
// "https://tent.io/types/info/core" and version "0.1.0".
type ProfileType struct {
	Base    string
	Version string
}

// ParseProfileType splits a type URI. A URI without a trailing "/v<version>"
// segment is accepted as a bare base with an empty version.
func ParseProfileType(uri string) (ProfileType, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return ProfileType{}, dErrors.New(dErrors.CodeValidation, "profile type is required")
	}
	if _, err := ParseEntity(uri); err != nil {
		return ProfileType{}, dErrors.New(dErrors.CodeValidation, "profile type must be an absolute URI: "+uri)
	}
	idx := strings.LastIndex(uri, "/")
	last := uri[idx+1:]
	if len(last) > 1 && last[0] == 'v' && strings.ContainsAny(last[1:2], "0123456789") {
		return ProfileType{Base: uri[:idx], Version: last[1:]}, nil
	}
	return ProfileType{Base: uri}, nil
}

// URI reassembles the full type URI.
func (t ProfileType) URI() string {
	if t.Version == "" {
		return t.Base
	}
	return t.Base + "/v" + t.Version
}

// IsCore reports whether t is the core profile type.
func (t ProfileType) IsCore() bool {
	return t.Base == CoreProfileTypeBase
}
