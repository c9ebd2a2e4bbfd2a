// Package verify decides whether a resolved reference location exists,
// probing script extensions and index files when the exact path is absent.
package verify

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/linkmedic/pkg/reference"
)

// ScriptProbeSuffixes are appended to a script location, in order, when
// the exact location does not exist.
var ScriptProbeSuffixes = []string{
	".js",
	".jsx",
	".ts",
	".tsx",
	"/index.js",
	"/index.jsx",
	"/index.tsx",
}

// Stat answers existence queries. Implementations fold every failure
// (not found, permission denied, I/O) into false.
type Stat interface {
	Exists(ctx context.Context, path string) bool
}

// Verifier checks locations against a Stat.
type Verifier struct {
	stat Stat
}

// New creates a Verifier.
func New(stat Stat) *Verifier {
	return &Verifier{stat: stat}
}

// Probes returns every path tried for location, exact location first.
func Probes(location string, kind reference.Kind) []string {
	if kind != reference.KindScript {
		return []string{location}
	}

	probes := make([]string, 0, len(ScriptProbeSuffixes)+1)
	probes = append(probes, location)

	for _, suffix := range ScriptProbeSuffixes {
		probes = append(probes, location+suffix)
	}

	return probes
}

// Verify reports whether location, or one of its script probes, exists.
func (v *Verifier) Verify(ctx context.Context, location string, kind reference.Kind) bool {
	_, ok := v.Lookup(ctx, location, kind)

	return ok
}

// Lookup returns the first existing path among the probes of location.
// The exact location is tried alone; the suffix probes run concurrently
// and the earliest hit in probe order wins.
func (v *Verifier) Lookup(ctx context.Context, location string, kind reference.Kind) (string, bool) {
	if v.stat.Exists(ctx, location) {
		return location, true
	}

	probes := Probes(location, kind)[1:]
	if len(probes) == 0 || ctx.Err() != nil {
		return "", false
	}

	hits := make([]bool, len(probes))

	group, groupCtx := errgroup.WithContext(ctx)

	for i, probe := range probes {
		group.Go(func() error {
			hits[i] = v.stat.Exists(groupCtx, probe)

			return nil
		})
	}

	// Probe goroutines never fail.
	_ = group.Wait()

	for i, hit := range hits {
		if hit {
			return probes[i], true
		}
	}

	return "", false
}
