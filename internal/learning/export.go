package learning

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ExportVersion is the format version written by this release.
const ExportVersion = "2.0"

// ErrVersionMismatch is returned by imports that reject an incompatible
// snapshot format. Imports never truncate data silently.
var ErrVersionMismatch = errors.New("model export version mismatch")

// ModelExport is a versioned snapshot of one module's learned state.
type ModelExport struct {
	// ModuleID identifies the exporting module.
	ModuleID string `json:"module_id"`

	// ExportedAt is when the snapshot was taken.
	ExportedAt time.Time `json:"exported_at"`

	// Version is the snapshot format version ("major.minor").
	Version string `json:"version"`

	// Rules is the module's serialized rule set, in priority order.
	Rules []Rule `json:"rules"`

	// ModelData holds opaque module state beyond the rule set.
	ModelData map[string]any `json:"model_data,omitempty"`

	// Metadata holds free-form snapshot annotations.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FullModelExport is a whole-registry snapshot keyed by module id, used
// for backup and restore.
type FullModelExport struct {
	// ExportedAt is when the snapshot was taken.
	ExportedAt time.Time `json:"exported_at"`

	// Version is the snapshot format version.
	Version string `json:"version"`

	// Modules maps module id to that module's export.
	Modules map[string]ModelExport `json:"modules"`
}

// Marshal serializes the export as JSON.
func (e FullModelExport) Marshal() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// UnmarshalFullExport parses a serialized whole-registry snapshot.
func UnmarshalFullExport(data []byte) (FullModelExport, error) {
	var e FullModelExport
	if err := json.Unmarshal(data, &e); err != nil {
		return FullModelExport{}, fmt.Errorf("parse model export: %w", err)
	}
	return e, nil
}

// CompatibleVersion reports whether an export with version got can be
// imported by a consumer expecting version want. Versions are "major.minor"
// strings; only the major component must agree.
func CompatibleVersion(want, got string) bool {
	return majorVersion(want) == majorVersion(got)
}

func majorVersion(v string) string {
	if i := strings.IndexByte(v, '.'); i >= 0 {
		return v[:i]
	}
	return v
}
