package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/segmenta/internal/apperr"
	"github.com/KaramelBytes/segmenta/internal/cluster"
	"github.com/KaramelBytes/segmenta/internal/conclusion"
	"github.com/KaramelBytes/segmenta/internal/dataset"
	"github.com/KaramelBytes/segmenta/internal/preprocess"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemory_OpenGetDelete(t *testing.T) {
	m := NewMemory(0)
	s := m.Open("")
	require.NotEmpty(t, s.ID())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Same(t, s, m.Open(s.ID()))

	m.Delete(s.ID())
	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, m.Clear(s.ID()), apperr.ErrNotFound)
}

func TestMemory_SessionsAreIsolated(t *testing.T) {
	m := NewMemory(0)
	a, b := m.Open("a"), m.Open("b")
	require.NoError(t, a.Do(func(st *State) error {
		st.SetDataset(&Upload{Filename: "a.csv"}, &dataset.Dataset{Name: "a.csv"}, nil)
		return nil
	}))
	require.NoError(t, b.Do(func(st *State) error {
		assert.Nil(t, st.Dataset)
		return nil
	}))
}

func TestMemory_ExpiresIdleSessions(t *testing.T) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory(time.Hour, WithClock(clk.now))
	keep := m.Open("keep")
	m.Open("drop")

	clk.advance(40 * time.Minute)
	_, err := m.Get(keep.ID())
	require.NoError(t, err)

	clk.advance(30 * time.Minute)
	_, err = m.Get("drop")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = m.Get("keep")
	assert.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestMemory_NewSlotSurvivesSweep(t *testing.T) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory(time.Hour, WithClock(clk.now))

	m.mu.Lock()
	s := m.create("fresh")
	m.mu.Unlock()
	assert.Equal(t, clk.t, s.idleSince())

	clk.advance(30 * time.Minute)
	m.sweep()
	_, err := m.Get("fresh")
	assert.NoError(t, err)
}

func TestMemory_ClearKeepsSession(t *testing.T) {
	m := NewMemory(0)
	s := m.Open("x")
	require.NoError(t, s.Do(func(st *State) error {
		st.SetDataset(nil, &dataset.Dataset{}, []string{"Sheet1"})
		return nil
	}))
	require.NoError(t, m.Clear("x"))
	require.NoError(t, s.Do(func(st *State) error {
		assert.Equal(t, StageEmpty, st.Stage())
		return nil
	}))
}

func TestSlot_DoSerializes(t *testing.T) {
	s := NewMemory(0).Open("c")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(func(st *State) error {
				st.Sheets = append(st.Sheets, "s")
				return nil
			})
		}()
	}
	wg.Wait()
	_ = s.Do(func(st *State) error {
		assert.Len(t, st.Sheets, 50)
		return nil
	})
}

func TestState_InvalidationCascade(t *testing.T) {
	full := func() *State {
		st := &State{}
		st.SetDataset(&Upload{}, &dataset.Dataset{}, nil)
		st.SetMatrix([]string{"a"}, &preprocess.Matrix{}, &preprocess.Report{})
		st.SetFit(cluster.New(), &cluster.FitReport{K: 2}, &cluster.Selection{Method: cluster.MethodManual, K: 2})
		st.SetStats(cluster.Statistics{})
		st.SetConclusion(&conclusion.Summary{})
		return st
	}

	st := full()
	assert.Equal(t, StageConcluded, st.Stage())

	st.SetStats(cluster.Statistics{})
	assert.Nil(t, st.Conclusion)
	assert.Equal(t, StageAnalyzed, st.Stage())

	st = full()
	st.SetFit(cluster.New(), &cluster.FitReport{K: 3}, nil)
	assert.Nil(t, st.Stats)
	assert.Nil(t, st.Conclusion)
	assert.Equal(t, StageFitted, st.Stage())

	st = full()
	st.SetMatrix(nil, &preprocess.Matrix{}, nil)
	assert.Nil(t, st.Fit)
	assert.Nil(t, st.Engine)
	assert.Nil(t, st.Stats)
	assert.Equal(t, StagePreprocessed, st.Stage())

	st = full()
	st.SetDataset(&Upload{}, &dataset.Dataset{}, nil)
	assert.Nil(t, st.Matrix)
	assert.Nil(t, st.Report)
	assert.Nil(t, st.Fit)
	assert.Nil(t, st.Stats)
	assert.Nil(t, st.Conclusion)
	assert.Equal(t, StageLoaded, st.Stage())
	assert.Equal(t, "loaded", st.Stage().String())
}
