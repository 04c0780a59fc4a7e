package operations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *OperationState) error { return nil }

func ids(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.ID()
	}
	return out
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewFuncStep("a", "A", noop)))

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(NewFuncStep("", "unnamed", noop)))
	assert.Error(t, r.Register(NewFuncStep("a", "again", noop)))

	assert.True(t, r.Has("a"))
	assert.Equal(t, 1, r.Count())

	_, err := r.Get("missing")
	assert.Equal(t, ErrorTypeNotFound, GetErrorType(err))
}

func TestRegistry_DependencyOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewFuncStep("report", "Report", noop, "clean", "load")))
	require.NoError(t, r.Register(NewFuncStep("load", "Load", noop)))
	require.NoError(t, r.Register(NewFuncStep("audit", "Audit", noop)))
	require.NoError(t, r.Register(NewFuncStep("clean", "Clean", noop, "load")))

	order, err := r.GetDependencyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"load", "audit", "clean", "report"}, ids(order))
	assert.Equal(t, []string{"report", "load", "audit", "clean"}, r.ListIDs())
}

func TestRegistry_RegistrationOrderKept(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"generate", "write_raw", "analytical"} {
		deps := []string{}
		if id != "generate" {
			deps = append(deps, "generate")
		}
		require.NoError(t, r.Register(NewFuncStep(id, id, noop, deps...)))
	}
	order, err := r.GetDependencyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"generate", "write_raw", "analytical"}, ids(order))
}

func TestRegistry_DependencyErrors(t *testing.T) {
	t.Run("unknown dependency", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(NewFuncStep("a", "A", noop, "ghost")))
		err := r.ValidateDependencies()
		require.Error(t, err)
		assert.Equal(t, ErrorTypeDependency, GetErrorType(err))
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("cycle", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(NewFuncStep("root", "Root", noop)))
		require.NoError(t, r.Register(NewFuncStep("a", "A", noop, "b")))
		require.NoError(t, r.Register(NewFuncStep("b", "B", noop, "a")))
		_, err := r.GetDependencyOrder()
		require.Error(t, err)
		assert.Equal(t, ErrorTypeDependency, GetErrorType(err))
		assert.Contains(t, err.Error(), "cycle")
		assert.Contains(t, err.Error(), "[a b]")
	})
}

func TestRegistry_GetDependents(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewFuncStep("a", "A", noop)))
	require.NoError(t, r.Register(NewFuncStep("b", "B", noop, "a")))
	require.NoError(t, r.Register(NewFuncStep("c", "C", noop, "a", "b")))

	assert.Equal(t, []string{"b", "c"}, r.GetDependents("a"))
	assert.Equal(t, []string{"c"}, r.GetDependents("b"))
	assert.Empty(t, r.GetDependents("c"))
}
