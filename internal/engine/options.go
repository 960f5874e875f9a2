package engine

import (
	"fmt"
)

// Policy decides whether an entity-level failure aborts the run.
type Policy string

const (
	// Strict propagates the first error and aborts the run.
	Strict Policy = "strict"

	// Lenient records identity, dependency and drift failures and
	// continues. Transport failures still abort.
	Lenient Policy = "lenient"
)

// ParsePolicy converts s to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case Strict, Lenient:
		return p, nil
	case "":
		return Strict, nil
	default:
		return "", fmt.Errorf("unknown policy %q (want strict or lenient)", s)
	}
}

// Absorbs reports whether err is recorded and skipped under p.
func (p Policy) Absorbs(err error) bool {
	if err == nil || p != Lenient || isFatal(err) {
		return false
	}
	return IsMissingDependency(err) || IsSchemaDrift(err) || IsIdentityResolution(err)
}

func (p Policy) String() string { return string(p) }

// WalkOptions are fixed for the duration of one Walk or Sync call.
type WalkOptions struct {
	Policy Policy

	// SkipRoot leaves the walk root itself alone and only walks its
	// children.
	SkipRoot bool

	// SyncDependencies upserts declared dependencies missing from the
	// target before their dependent. Without it a missing dependency is a
	// MissingDependency error.
	SyncDependencies bool

	// FollowReferences upserts payload reference targets missing from the
	// target instead of clearing or failing the reference.
	FollowReferences bool

	// StripPhantoms removes undeclared nodes from outbound payloads.
	StripPhantoms bool
}

// DefaultWalkOptions returns strict policy with dependency sync on.
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{
		Policy:           Strict,
		SyncDependencies: true,
	}
}
