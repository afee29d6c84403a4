package projection

import (
	"context"
	"fmt"
	"log/slog"

	"tavola/internal/platform/dispatch"
)

// CheckpointResetter is the checkpoint store a rebuild rewinds.
type CheckpointResetter interface {
	Reset(ctx context.Context, name string) error
}

// Rebuild drops each projector's table and checkpoint, then replays the
// whole log into it. It must not run while the same projectors are live.
func Rebuild(ctx context.Context, runner *dispatch.Runner, checkpoints CheckpointResetter, logger *slog.Logger, projectors ...Resettable) error {
	for _, p := range projectors {
		if err := p.Reset(ctx); err != nil {
			return fmt.Errorf("reset %s: %w", p.Name(), err)
		}
		if err := checkpoints.Reset(ctx, p.Name()); err != nil {
			return fmt.Errorf("reset checkpoint %s: %w", p.Name(), err)
		}
		if err := runner.CatchUp(ctx, p); err != nil {
			return fmt.Errorf("replay %s: %w", p.Name(), err)
		}
		if logger != nil {
			logger.InfoContext(ctx, "read model rebuilt", "projector", p.Name())
		}
	}
	return nil
}

// Select returns the projectors named in names, or all when names is
// empty. Unknown names are an error.
func Select(all []Resettable, names ...string) ([]Resettable, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]Resettable, len(all))
	for _, p := range all {
		byName[p.Name()] = p
	}
	out := make([]Resettable, 0, len(names))
	for _, n := range names {
		p, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown projector %q", n)
		}
		out = append(out, p)
	}
	return out, nil
}
