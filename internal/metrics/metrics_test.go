package metrics

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statebox/internal/catalog"
	"github.com/roach88/statebox/internal/counter"
	"github.com/roach88/statebox/internal/engine"
	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/state"
)

func buildCounter(t *testing.T, c *Collector) *catalog.Instance {
	t.Helper()
	inst, err := catalog.Default().Build(
		[]ir.SliceSpec{{Name: "counter", Reducer: "counter"}, {Name: "user", Reducer: "user"}},
		state.WithObserver(c),
	)
	require.NoError(t, err)
	return inst
}

func TestCollector_CountsDispatches(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	inst := buildCounter(t, c)

	sl := inst.Slices[0].Def.(*state.Slice[int])
	state.SelectSlice(inst.Store, sl).Subscribe(func(int) {})
	state.SelectSlice(inst.Store, sl).Subscribe(func(int) {})

	require.NoError(t, inst.Store.Dispatch(counter.Increment{}))
	require.NoError(t, inst.Store.Dispatch(counter.Increment{}))
	require.NoError(t, inst.Store.Dispatch(state.UnknownAction{Tag: "[Elsewhere] Ping"}))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.dispatches.WithLabelValues(counter.TagIncrement, "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatches.WithLabelValues("[Elsewhere] Ping", "false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sliceChanges.WithLabelValues("counter")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.notifications), "two subscribers, two changes")
}

func TestCollector_CountsSubscriberPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	inst := buildCounter(t, c)

	sl := inst.Slices[0].Def.(*state.Slice[int])
	state.SelectSlice(inst.Store, sl).Named("fragile").Subscribe(func(n int) {
		if n > 0 {
			panic("fragile")
		}
	})

	require.NoError(t, inst.Store.Dispatch(counter.Increment{}))
	require.NoError(t, inst.Store.Dispatch(counter.Increment{}))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.panics.WithLabelValues("fragile")))
}

func TestCollector_Applied(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.Applied(engine.Applied{})
	c.Applied(engine.Applied{Err: &engine.RuntimeError{Code: engine.ErrCodeReducerPanic}})
	c.Applied(engine.Applied{Err: errors.New("other")})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.engineErrors.WithLabelValues("REDUCER_PANIC")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.engineErrors.WithLabelValues("UNKNOWN")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.engineErrors))
}

func TestCollector_WithEngine(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, WithNamespace("test"))

	e, err := engine.New(catalog.Default(),
		[]ir.SliceSpec{{Name: "counter", Reducer: "counter"}},
		engine.NewFixedGenerator("s"),
		engine.WithObserver(c),
		engine.OnApplied(c.Applied),
	)
	require.NoError(t, err)

	e.Enqueue(counter.Increment{})
	e.Enqueue(counter.Reset{})
	e.Enqueue(counter.Reset{})
	e.Stop()
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatches.WithLabelValues(counter.TagReset, "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatches.WithLabelValues(counter.TagReset, "true")))
}

func TestWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, WithConstLabels(prometheus.Labels{"store": "demo"}))
	inst := buildCounter(t, c)
	require.NoError(t, inst.Store.Dispatch(counter.Increment{}))

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))

	out := buf.String()
	assert.Contains(t, out, "# TYPE statebox_dispatch_total counter")
	assert.Contains(t, out, `statebox_dispatch_total{action="[Counter Component] IncrementByOne",changed="true",store="demo"} 1`)
	assert.Contains(t, out, `statebox_slice_changes_total{slice="counter",store="demo"} 1`)
}
