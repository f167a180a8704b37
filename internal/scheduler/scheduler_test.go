package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/yieldpilot/pkg/logger"
)

type stubJob struct {
	name string
	err  error
	runs int
}

func (j *stubJob) Name() string                  { return j.name }
func (j *stubJob) Schedule() string              { return "0 */5 * * * *" }
func (j *stubJob) Run(ctx context.Context) error { j.runs++; return j.err }

func TestAddJobRejectsDuplicate(t *testing.T) {
	s := New(logger.NewNop())

	require.NoError(t, s.AddJob(&stubJob{name: "cycle"}))
	err := s.AddJob(&stubJob{name: "cycle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRunJobRecordsHistory(t *testing.T) {
	s := New(logger.NewNop())

	job := &stubJob{name: "cycle"}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	history, err := s.GetJobHistory("cycle")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)
	assert.Equal(t, 1, job.runs)
	assert.Equal(t, 1.0, history.GetSuccessRate())
}

func TestRunJobUnknown(t *testing.T) {
	s := New(logger.NewNop())

	assert.Error(t, s.RunJob("missing"))
}

func TestJobHistoryBounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "cycle", StartTime: time.Now(), Success: true})
	}

	assert.Len(t, h.Results, 100)
	assert.Len(t, h.GetLatestResults(10), 10)
}
