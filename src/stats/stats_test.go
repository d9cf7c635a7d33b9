package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"subtilisgo/src/stats"
)

func TestNewRegistryStartsAtZero(t *testing.T) {
	r := stats.New()
	snap := r.Snapshot()
	for k, v := range snap {
		assert.Zero(t, v, k)
	}
}

func TestSnapshotReflectsCounterIncrements(t *testing.T) {
	r := stats.New()
	r.SectionsCompiled.Inc()
	r.InstructionsEmitted.Add(7)
	r.BoundsChecksEmitted.Inc()
	r.BoundsChecksEmitted.Inc()

	snap := r.Snapshot()
	assert.Equal(t, 1.0, snap["sections_compiled"])
	assert.Equal(t, 7.0, snap["instructions_emitted"])
	assert.Equal(t, 2.0, snap["bounds_checks_emitted"])
	assert.Equal(t, 0.0, snap["registers_allocated"])
}

func TestEachRegistryInstanceIsIndependent(t *testing.T) {
	a := stats.New()
	b := stats.New()
	a.LabelsAllocated.Inc()

	assert.Equal(t, 1.0, a.Snapshot()["labels_allocated"])
	assert.Equal(t, 0.0, b.Snapshot()["labels_allocated"])
}
