package jira

import (
	"context"

	"github.com/helixdata/helix/pkg/errors"
	"github.com/helixdata/helix/pkg/metrics"
	"go.uber.org/zap"
)

// subFetchFunc fetches the records for one (left, right) parent combination.
type subFetchFunc func(ctx context.Context, left, right map[string]interface{}) ([]map[string]interface{}, error)

// fanoutExecutor walks the Cartesian product of two parent collections,
// invoking a fetch per combination. Many combinations are legitimately
// invalid (a role that grants nothing on a project, an entity gone since the
// parent page was fetched), so per-combination transport and data failures
// are logged and counted rather than aborting the sweep. Cancellation and
// unexpected error kinds still propagate.
type fanoutExecutor struct {
	stream string
	logger *zap.Logger
}

func (f *fanoutExecutor) execute(ctx context.Context, left, right []map[string]interface{}, fetch subFetchFunc) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	for _, a := range left {
		for _, b := range right {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "fan-out cancelled")
			}

			records, err := fetch(ctx, a, b)
			if err != nil {
				if !tolerableFanoutError(err) {
					return nil, err
				}
				f.logger.Warn("skipping fan-out combination",
					zap.String("stream", f.stream),
					zap.Any("left_id", a["id"]),
					zap.Any("right_id", b["id"]),
					zap.String("error_type", string(errors.TypeOf(err))),
					zap.Error(err))
				metrics.SuppressedFailures.WithLabelValues("jira", f.stream, string(errors.TypeOf(err))).Inc()
				continue
			}
			out = append(out, records...)
		}
	}
	return out, nil
}

// tolerableFanoutError limits the swallow to failure kinds a single bad
// combination can produce. Cancellation, auth failures, and anything
// untyped abort the whole sweep.
func tolerableFanoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.IsType(err, errors.ErrorTypeTimeout) {
		// Cancellation wraps as a timeout; it must stop the sweep
		return false
	}
	switch errors.TypeOf(err) {
	case errors.ErrorTypeConnection,
		errors.ErrorTypeData,
		errors.ErrorTypePermission,
		errors.ErrorTypeRateLimit:
		return true
	}
	return false
}
