package jira

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helixdata/helix/pkg/errors"
)

func fanoutParents(ids ...string) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, map[string]interface{}{"id": id})
	}
	return out
}

func TestFanoutExecutor_VisitsFullProduct(t *testing.T) {
	executor := &fanoutExecutor{stream: "project_role_actors", logger: zap.NewNop()}

	var combos [][2]string
	records, err := executor.execute(context.Background(),
		fanoutParents("p1", "p2"),
		fanoutParents("r1", "r2", "r3"),
		func(_ context.Context, left, right map[string]interface{}) ([]map[string]interface{}, error) {
			combos = append(combos, [2]string{left["id"].(string), right["id"].(string)})
			return []map[string]interface{}{{"project": left["id"], "role": right["id"]}}, nil
		})

	require.NoError(t, err)
	assert.Len(t, records, 6)
	assert.Len(t, combos, 6)
	assert.Equal(t, [2]string{"p1", "r1"}, combos[0])
	assert.Equal(t, [2]string{"p2", "r3"}, combos[5])
}

func TestFanoutExecutor_ToleratesPerCombinationFailures(t *testing.T) {
	executor := &fanoutExecutor{stream: "project_role_actors", logger: zap.NewNop()}

	records, err := executor.execute(context.Background(),
		fanoutParents("p1", "p2"),
		fanoutParents("r1"),
		func(_ context.Context, left, _ map[string]interface{}) ([]map[string]interface{}, error) {
			if left["id"] == "p1" {
				return nil, errors.New(errors.ErrorTypeData, "role grants nothing here")
			}
			return []map[string]interface{}{{"id": "ok"}}, nil
		})

	// The failed combination is skipped; the rest of the sweep completes
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ok", records[0]["id"])
}

func TestFanoutExecutor_UnexpectedErrorsPropagate(t *testing.T) {
	executor := &fanoutExecutor{stream: "project_role_actors", logger: zap.NewNop()}

	var calls int
	_, err := executor.execute(context.Background(),
		fanoutParents("p1", "p2"),
		fanoutParents("r1"),
		func(context.Context, map[string]interface{}, map[string]interface{}) ([]map[string]interface{}, error) {
			calls++
			return nil, errors.New(errors.ErrorTypeAuthentication, "token revoked")
		})

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
	assert.Equal(t, 1, calls)
}

func TestFanoutExecutor_CancellationStopsSweep(t *testing.T) {
	executor := &fanoutExecutor{stream: "project_role_actors", logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	_, err := executor.execute(ctx,
		fanoutParents("p1", "p2"),
		fanoutParents("r1", "r2"),
		func(context.Context, map[string]interface{}, map[string]interface{}) ([]map[string]interface{}, error) {
			calls++
			cancel()
			return nil, nil
		})

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
	assert.Equal(t, 1, calls)
}

func TestTolerableFanoutError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection failure", errors.New(errors.ErrorTypeConnection, "refused"), true},
		{"data failure", errors.New(errors.ErrorTypeData, "bad combination"), true},
		{"permission denied", errors.New(errors.ErrorTypePermission, "forbidden"), true},
		{"rate limited", errors.New(errors.ErrorTypeRateLimit, "slow down"), true},
		{"authentication", errors.New(errors.ErrorTypeAuthentication, "revoked"), false},
		{"cancellation", errors.New(errors.ErrorTypeTimeout, "cancelled"), false},
		{"untyped", assert.AnError, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tolerableFanoutError(tt.err))
		})
	}
}
