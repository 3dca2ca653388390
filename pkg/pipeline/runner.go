package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vtprint/vtp/pkg/cache"
	"github.com/vtprint/vtp/pkg/engine"
	"github.com/vtprint/vtp/pkg/observability"
)

const keyTypeTransform = "transform"

// Runner executes transforms with caching.
//
// A Runner holds no per-run state, so one Runner may serve concurrent
// Execute calls with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner returns a Runner. A nil cache disables caching, a nil keyer
// uses the DefaultKeyer and a nil logger uses log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

type cachedResult struct {
	Output []byte       `json:"output"`
	Stats  engine.Stats `json:"stats"`
}

// Execute transforms opts.Program, serving the result from the cache when
// the same program was transformed against the same project before.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	start := time.Now()
	res := &Result{RunID: uuid.NewString(), ProgramHash: cache.Hash(opts.Program)}
	logger := opts.Logger.With("run", res.RunID[:8])
	hooks := observability.Transform()
	hooks.OnTransformStart(ctx, countLines(opts.Program))

	projectHash, err := ProjectHash(opts.Config)
	if err != nil {
		return nil, r.fail(ctx, res, start, fmt.Errorf("hash project: %w", err))
	}
	res.ProjectHash = projectHash
	key := r.Keyer.TransformKey(res.ProgramHash, res.ProjectHash)

	if !opts.Refresh {
		if cached, ok := r.lookup(ctx, key, logger); ok {
			res.Output, res.Stats, res.CacheHit = cached.Output, cached.Stats, true
			res.Duration = time.Since(start)
			hooks.OnTransformComplete(ctx, summary(res), res.Duration, nil)
			logger.Info("served from cache", "lines", res.Stats.LinesIn, "duration", res.Duration)
			return res, nil
		}
	}

	table := opts.Table
	if table == nil {
		if table, err = opts.Config.Table(); err != nil {
			return nil, r.fail(ctx, res, start, fmt.Errorf("build regions: %w", err))
		}
	}
	logger.Debug("built region table", "regions", table.Len())

	eopts := opts.Config.EngineOptions(table)
	eopts.Progress = opts.Progress
	eopts.Logger = logger
	eng, err := engine.New(eopts)
	if err != nil {
		return nil, r.fail(ctx, res, start, fmt.Errorf("configure engine: %w", err))
	}

	out, err := eng.Run(ctx, opts.Program)
	if err != nil {
		return nil, r.fail(ctx, res, start, fmt.Errorf("transform: %w", err))
	}
	res.Output, res.Stats = out.Output, out.Stats
	res.Duration = time.Since(start)
	hooks.OnTransformComplete(ctx, summary(res), res.Duration, nil)

	logger.Info("transformed program",
		"lines", res.Stats.LinesIn,
		"moves", res.Stats.MovesTransformed,
		"sub_moves", res.Stats.SubMoves,
		"resyncs", res.Stats.Resyncs,
		"duration", res.Duration)

	r.store(ctx, key, res, logger)
	return res, nil
}

func (r *Runner) lookup(ctx context.Context, key string, logger *log.Logger) (cachedResult, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed", "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyTypeTransform)
		return cachedResult{}, false
	}
	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		logger.Warn("discarding corrupt cache entry", "err", err)
		_ = r.Cache.Delete(ctx, key)
		observability.Cache().OnCacheMiss(ctx, keyTypeTransform)
		return cachedResult{}, false
	}
	observability.Cache().OnCacheHit(ctx, keyTypeTransform)
	return cached, true
}

func (r *Runner) store(ctx context.Context, key string, res *Result, logger *log.Logger) {
	data, err := json.Marshal(cachedResult{Output: res.Output, Stats: res.Stats})
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLTransform); err != nil {
		logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyTypeTransform, len(data))
}

func (r *Runner) fail(ctx context.Context, res *Result, start time.Time, err error) error {
	observability.Transform().OnTransformComplete(ctx, summary(res), time.Since(start), err)
	return err
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func summary(res *Result) observability.TransformSummary {
	s := observability.TransformSummary{
		Lines:    res.Stats.LinesIn,
		Moves:    res.Stats.MovesTransformed,
		SubMoves: res.Stats.SubMoves,
		Resyncs:  res.Stats.Resyncs,
		CacheHit: res.CacheHit,
	}
	if len(res.Stats.PerRegion) > 0 {
		s.SubMovesByRegion = make(map[string]int, len(res.Stats.PerRegion))
		for name, rs := range res.Stats.PerRegion {
			s.SubMovesByRegion[name] = rs.SubMoves
		}
	}
	return s
}

func countLines(program []byte) int {
	n := 0
	for _, b := range program {
		if b == '\n' {
			n++
		}
	}
	if len(program) > 0 && program[len(program)-1] != '\n' {
		n++
	}
	return n
}
