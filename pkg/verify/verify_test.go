package verify_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/linkmedic/pkg/reference"
	"github.com/Sumatoshi-tech/linkmedic/pkg/verify"
)

// fakeStat is a set of existing paths that records every query.
type fakeStat struct {
	mu       sync.Mutex
	existing map[string]bool
	asked    []string
}

func newFakeStat(paths ...string) *fakeStat {
	existing := make(map[string]bool, len(paths))
	for _, p := range paths {
		existing[p] = true
	}

	return &fakeStat{existing: existing}
}

func (f *fakeStat) Exists(_ context.Context, path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.asked = append(f.asked, path)

	return f.existing[path]
}

func TestProbes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"/w/a.png"}, verify.Probes("/w/a.png", reference.KindMarkup))
	assert.Equal(t, []string{
		"/w/utils",
		"/w/utils.js",
		"/w/utils.jsx",
		"/w/utils.ts",
		"/w/utils.tsx",
		"/w/utils/index.js",
		"/w/utils/index.jsx",
		"/w/utils/index.tsx",
	}, verify.Probes("/w/utils", reference.KindScript))
}

func TestVerifier_Lookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing []string
		location string
		kind     reference.Kind
		want     string
		found    bool
	}{
		{
			name:     "exact script file",
			existing: []string{"/w/a.js"},
			location: "/w/a.js",
			kind:     reference.KindScript,
			want:     "/w/a.js",
			found:    true,
		},
		{
			name:     "extension probe",
			existing: []string{"/w/utils.ts"},
			location: "/w/utils",
			kind:     reference.KindScript,
			want:     "/w/utils.ts",
			found:    true,
		},
		{
			name:     "index probe",
			existing: []string{"/w/components/index.tsx"},
			location: "/w/components",
			kind:     reference.KindScript,
			want:     "/w/components/index.tsx",
			found:    true,
		},
		{
			name:     "earliest probe wins",
			existing: []string{"/w/x.tsx", "/w/x.jsx"},
			location: "/w/x",
			kind:     reference.KindScript,
			want:     "/w/x.jsx",
			found:    true,
		},
		{
			name:     "markup is exact only",
			existing: []string{"/w/logo.js"},
			location: "/w/logo",
			kind:     reference.KindMarkup,
		},
		{
			name:     "nothing exists",
			location: "/w/missing",
			kind:     reference.KindScript,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			verifier := verify.New(newFakeStat(tt.existing...))

			got, found := verifier.Lookup(context.Background(), tt.location, tt.kind)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.found, verifier.Verify(context.Background(), tt.location, tt.kind))
		})
	}
}

func TestVerifier_ExactHitSkipsProbes(t *testing.T) {
	t.Parallel()

	stat := newFakeStat("/w/lib")
	assert.True(t, verify.New(stat).Verify(context.Background(), "/w/lib", reference.KindScript))
	assert.Equal(t, []string{"/w/lib"}, stat.asked)
}

func TestVerifier_MissingScriptTriesEveryProbe(t *testing.T) {
	t.Parallel()

	stat := newFakeStat()
	assert.False(t, verify.New(stat).Verify(context.Background(), "/w/gone", reference.KindScript))
	assert.ElementsMatch(t, verify.Probes("/w/gone", reference.KindScript), stat.asked)
}

func TestVerifier_CanceledContextStopsAfterExactCheck(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stat := newFakeStat("/w/a.ts")
	assert.False(t, verify.New(stat).Verify(ctx, "/w/a", reference.KindScript))
	assert.Equal(t, []string{"/w/a"}, stat.asked)
}
