// Package semverdoc parses and compares the schema_version strings carried
// in every exported JSON shard's metadata envelope (MAJOR.MINOR, minor
// bumps backward compatible — spec.md §6), grounded on the teacher's
// dependency-resolution use of Masterminds/semver/v3 in
// internal/packagemanager/resolver.go, generalized here from package
// version constraints to a two-field schema-compatibility check.
package semverdoc

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// CurrentSchemaVersion is the schema_version stamped into every JSON shard
// this module produces.
const CurrentSchemaVersion = "1.0"

// Parse validates a MAJOR.MINOR schema version string.
func Parse(v string) (*semver.Version, error) {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return nil, fmt.Errorf("semverdoc: invalid schema version %q: %w", v, err)
	}

	return sv, nil
}

// Compatible reports whether a reader built against readerVersion can
// consume a shard stamped with producedVersion: same major, reader's minor
// at least the produced minor (a minor bump only adds fields).
func Compatible(readerVersion, producedVersion string) (bool, error) {
	reader, err := Parse(readerVersion)
	if err != nil {
		return false, err
	}

	produced, err := Parse(producedVersion)
	if err != nil {
		return false, err
	}

	if reader.Major() != produced.Major() {
		return false, nil
	}

	return reader.Minor() >= produced.Minor(), nil
}
