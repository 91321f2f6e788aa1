// Package driver runs the registration and completion passes over
// compilation units, in parallel across units, with optional disk
// caching of per-unit results.
package driver

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ember/internal/ast"
	"ember/internal/complete"
	"ember/internal/diag"
	"ember/internal/observ"
	"ember/internal/project"
	"ember/internal/register"
	"ember/internal/registry"
)

// ErrFfiNotFrozen is returned by New when the host registry is still open
// for registration. Workers share it read-only, so it must be sealed first.
var ErrFfiNotFrozen = errors.New("ffi registry must be frozen before compiling units")

// Options configures a Driver.
type Options struct {
	// MaxDiagnostics caps the diagnostics collected per unit.
	MaxDiagnostics int
	// Jobs limits compile parallelism; <=0 means GOMAXPROCS.
	Jobs int
	// Log receives per-unit structured events.
	Log zerolog.Logger
	// Cache, when non-nil, stores per-unit summaries keyed by Digest.
	Cache *DiskCache
}

// Driver compiles units against a shared frozen FFI registry.
type Driver struct {
	ffi     *registry.Registry
	log     zerolog.Logger
	cache   *DiskCache
	jobs    int
	maxDiag int

	// mu serializes unloads and cache writes. Unit compilation itself
	// needs no locking: each worker owns its unit registry and only
	// reads the frozen FFI registry.
	mu sync.Mutex
}

// UnitRequest is one unit to compile plus its optional cache key.
type UnitRequest struct {
	Unit *ast.Unit
	// Digest keys the disk cache entry. Zero disables caching for the unit.
	Digest project.Digest
}

// UnitResult is the outcome of compiling one unit.
type UnitResult struct {
	Unit *ast.Unit
	// Registry holds the unit's completed symbol registry. It is nil when
	// Cached is set: a cache hit replays the stored Summary only, callers
	// that need the registry itself must compile with caching disabled.
	Registry *registry.Registry
	Bag      *diag.Bag
	State    complete.State
	Timing   observ.Report
	// Cached is set when the result was answered from the disk cache.
	Cached  bool
	Summary *UnitSummary
}

// Broken reports whether the unit failed to reach the completed state
// or produced errors.
func (r *UnitResult) Broken() bool {
	return r.State != complete.StateVTablesBuilt || r.Bag.HasErrors()
}

// New creates a driver over a frozen FFI registry.
func New(ffi *registry.Registry, opts Options) (*Driver, error) {
	if ffi != nil && !ffi.Frozen() {
		return nil, ErrFfiNotFrozen
	}
	maxDiag := opts.MaxDiagnostics
	if maxDiag <= 0 {
		maxDiag = project.DefaultMaxDiagnostics
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return &Driver{
		ffi:     ffi,
		log:     opts.Log,
		cache:   opts.Cache,
		jobs:    jobs,
		maxDiag: maxDiag,
	}, nil
}

// CompileUnit runs both passes over one unit and returns its registry,
// diagnostics and phase timings.
func (d *Driver) CompileUnit(unit *ast.Unit) *UnitResult {
	bag := diag.NewBag(d.maxDiag)
	rep := &diag.BagReporter{Bag: bag}
	reg := registry.NewUnit(d.ffi)

	timer := observ.NewTimer()

	ph := timer.Begin("register")
	pending := register.Run(reg, rep, unit)
	timer.End(ph, "")

	ph = timer.Begin("complete")
	state := complete.Run(reg, rep, pending, unit.ID)
	timer.End(ph, state.String())

	res := &UnitResult{
		Unit:     unit,
		Registry: reg,
		Bag:      bag,
		State:    state,
		Timing:   timer.Report(),
	}
	res.Summary = d.summarize(res)

	d.log.Debug().
		Str("unit", unit.Name).
		Str("state", state.String()).
		Bool("broken", res.Broken()).
		Int("diagnostics", bag.Len()).
		Float64("total_ms", res.Timing.TotalMS).
		Msg("unit compiled")

	return res
}

// CompileAll compiles the requested units in parallel. Results are
// positionally aligned with reqs. Workers share only the frozen FFI
// registry, so no cross-unit locking is needed.
func (d *Driver) CompileAll(ctx context.Context, reqs []UnitRequest) ([]*UnitResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	results := make([]*UnitResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(d.jobs, len(reqs)))

	for i, req := range reqs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			if hit := d.lookup(req); hit != nil {
				results[i] = hit
				return nil
			}

			res := d.CompileUnit(req.Unit)
			results[i] = res
			d.store(req, res)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Unload removes a unit's entries from a shared registry. Serialized so
// concurrent unloads (and cache writes) never interleave.
func (d *Driver) Unload(reg *registry.Registry, unit ast.UnitID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	reg.Unload(unit)
	d.log.Debug().Uint32("unit", uint32(unit)).Msg("unit unloaded")
}

// lookup answers a request from the disk cache. Only clean units are
// served from cache: a broken unit's diagnostics cannot be replayed
// from a summary, so those always recompile.
func (d *Driver) lookup(req UnitRequest) *UnitResult {
	if d.cache == nil || req.Digest.Zero() {
		return nil
	}
	var sum UnitSummary
	ok, err := d.cache.Get(req.Digest, &sum)
	if err != nil {
		d.log.Warn().Str("unit", req.Unit.Name).Err(err).Msg("cache read failed")
		return nil
	}
	if !ok || sum.Broken {
		return nil
	}
	d.log.Debug().Str("unit", req.Unit.Name).Msg("cache hit")
	return &UnitResult{
		Unit:    req.Unit,
		Bag:     diag.NewBag(d.maxDiag),
		State:   complete.StateVTablesBuilt,
		Timing:  sum.Timing,
		Cached:  true,
		Summary: &sum,
	}
}

func (d *Driver) store(req UnitRequest, res *UnitResult) {
	if d.cache == nil || req.Digest.Zero() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.cache.Put(req.Digest, res.Summary); err != nil {
		d.log.Warn().Str("unit", req.Unit.Name).Err(err).Msg("cache write failed")
	}
}

// summarize flattens a compile result into its cacheable form. Primitive
// and FFI entries are the host's, not the unit's, and are excluded.
func (d *Driver) summarize(res *UnitResult) *UnitSummary {
	sum := &UnitSummary{
		Schema:      diskCacheSchemaVersion,
		Unit:        res.Unit.Name,
		State:       res.State.String(),
		Broken:      res.Broken(),
		Diagnostics: res.Bag.Len(),
		Timing:      res.Timing,
	}
	res.Registry.Types(func(t *registry.TypeEntry) bool {
		if t.Kind == registry.KindPrimitive || t.Source.Kind == registry.SourceFfi {
			return true
		}
		sum.Types++
		sum.TypeHashes = append(sum.TypeHashes, uint64(t.Hash))
		return true
	})
	res.Registry.Functions(func(f *registry.FunctionEntry) bool {
		sum.Functions++
		return true
	})
	res.Registry.Globals(func(g *registry.GlobalEntry) bool {
		sum.Globals++
		return true
	})
	sort.Slice(sum.TypeHashes, func(i, j int) bool { return sum.TypeHashes[i] < sum.TypeHashes[j] })
	return sum
}
