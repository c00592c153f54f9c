package transpiler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"qtranspile/internal/dag"
	"qtranspile/internal/gates"
)

type recordLayout struct{ layout Layout }

func (recordLayout) Name() string { return "record" }
func (r recordLayout) Analyze(_ *dag.DAG, props *PropertySet) error {
	return props.Set(LayoutKey, r.layout)
}

type appendX struct{ seen *Layout }

func (appendX) Name() string { return "append_x" }
func (a appendX) Run(d *dag.DAG, props Properties) (*dag.DAG, error) {
	if l, ok := props.Layout(); ok && a.seen != nil {
		*a.seen = l
	}
	out := d.Copy()
	_, err := out.ApplyOperationBack(gates.X(), out.Qubits()[:1], nil, nil)
	return out, err
}

type failing struct{}

func (failing) Name() string { return "failing" }
func (failing) Run(*dag.DAG, Properties) (*dag.DAG, error) {
	return nil, errors.New("boom")
}

func circuit(t *testing.T) *dag.DAG {
	t.Helper()
	d := dag.New()
	require.NoError(t, d.AddQReg("q", 2))
	return d
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var seen Layout
	p := New(zap.New(core), recordLayout{Layout{1, 0}}, appendX{&seen}, appendX{})
	assert.Equal(t, []string{"record", "append_x", "append_x"}, p.Stages())

	in := circuit(t)
	res, err := p.Run(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.DAG.Size())
	assert.Equal(t, 0, in.Size())
	assert.Equal(t, Layout{1, 0}, seen)
	assert.NotEmpty(t, res.RunID)

	stages := logs.FilterMessage("stage done").All()
	require.Len(t, stages, 3)
	for _, e := range stages {
		assert.Equal(t, res.RunID, e.ContextMap()["run_id"])
	}
	assert.Equal(t, int64(1), stages[1].ContextMap()["ops_after"])
}

func TestPipelineStopsOnError(t *testing.T) {
	p := New(nil, appendX{}, failing{}, appendX{})
	_, err := p.Run(context.Background(), circuit(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage failing")
}

func TestPipelineHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil, appendX{}).Run(ctx, circuit(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPropertySetWriteOnce(t *testing.T) {
	props := NewPropertySet()
	require.NoError(t, props.Set(LayoutKey, Layout{0, 1}))
	assert.ErrorIs(t, props.Set(LayoutKey, Layout{1, 0}), ErrPropertyExists)

	l, ok := props.View().Layout()
	require.True(t, ok)
	assert.Equal(t, Layout{0, 1}, l)
	assert.Equal(t, []string{LayoutKey}, props.Keys())

	_, err := New(nil, recordLayout{Layout{0}}).Run(context.Background(), circuit(t), props)
	assert.ErrorIs(t, err, ErrPropertyExists)
}

func TestLayout(t *testing.T) {
	l := TrivialLayout(3)
	assert.Equal(t, Layout{0, 1, 2}, l)
	p, ok := Layout{4, 2}.Physical(1)
	assert.True(t, ok)
	assert.Equal(t, 2, p)
	_, ok = l.Physical(3)
	assert.False(t, ok)

	props := NewPropertySet()
	require.NoError(t, props.Set(LayoutKey, "not a layout"))
	_, ok = props.Layout()
	assert.False(t, ok)
}
