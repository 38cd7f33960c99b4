package template

import (
	"github.com/Masterminds/semver/v3"

	"github.com/flyctl-dev/flymcp/internal/mcperr"
)

// VersionsInRange filters versions (already newest-first) by a semver
// constraint string, preserving order (spec §4.5, §8's set-theoretic
// intersection invariant). Masterminds/semver/v3 natively supports ^, >=,
// <, <=, exact, and whitespace-separated conjunctions.
func VersionsInRange(versions []*semver.Version, constraint string) ([]*semver.Version, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, mcperr.New().Code(mcperr.CodeInvalidParams).
			Messagef("invalid version constraint %q: %v", constraint, err).WithLocation().Build()
	}
	out := make([]*semver.Version, 0, len(versions))
	for _, v := range versions {
		if c.Check(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// NextVersion returns the least version strictly greater than v among
// versions, or nil if none exists.
func NextVersion(versions []*semver.Version, v *semver.Version) *semver.Version {
	var best *semver.Version
	for _, candidate := range versions {
		if candidate.GreaterThan(v) && (best == nil || candidate.LessThan(best)) {
			best = candidate
		}
	}
	return best
}

// PreviousVersion returns the greatest version strictly less than v among
// versions, or nil if none exists.
func PreviousVersion(versions []*semver.Version, v *semver.Version) *semver.Version {
	var best *semver.Version
	for _, candidate := range versions {
		if candidate.LessThan(v) && (best == nil || candidate.GreaterThan(best)) {
			best = candidate
		}
	}
	return best
}
