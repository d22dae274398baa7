package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	// fresh registry per test to avoid duplicate registration
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.ObserveUpload(OutcomeOK)
	r.ObserveUpload(OutcomeOK)
	r.ObserveUpload(OutcomeSourceNotFound)
	r.ObserveEvent(OutcomeObjectNotFound)
	r.AddAnalyzedBytes(59)
	r.AddAnalyzedBytes(0)
	r.ObserveStage(StageAnalyze, 3*time.Millisecond)
	r.ObserveStage(StageAppend, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.uploads.WithLabelValues(OutcomeOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.uploads.WithLabelValues(OutcomeSourceNotFound)))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.events.WithLabelValues(OutcomeObjectNotFound)))
	assert.Equal(t, float64(59), testutil.ToFloat64(r.analyzedBytes))
	assert.Equal(t, 2, testutil.CollectAndCount(r.stageDuration))
}

func TestNewRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)

	_, err = NewRecorder(reg)
	assert.Error(t, err)
}

func TestRecorder_WriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)
	r.ObserveUpload(OutcomeOK)

	path := filepath.Join(t.TempDir(), "uploadsim.prom")
	require.NoError(t, r.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `uploadsim_uploads_total{status="ok"} 1`))
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveUpload(OutcomeOK)
		r.ObserveEvent(OutcomeOK)
		r.AddAnalyzedBytes(10)
		r.ObserveStage(StagePut, time.Second)
	})
	assert.NoError(t, r.WriteTextfile("ignored"))
}
