package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	limit int
	n     int
	err   error
}

func (f *fakeRunner) RunDueScheduled(ctx context.Context, limit int) (int, error) {
	f.limit = limit
	return f.n, f.err
}

type fakePurger struct {
	calls int
	err   error
}

func (f *fakePurger) PurgeExpired(ctx context.Context) (int64, error) {
	f.calls++
	return 2, f.err
}

type jobLog map[string]int

func (j jobLog) ObserveJob(job string, err error) {
	key := job + ":ok"
	if err != nil {
		key = job + ":error"
	}
	j[key]++
}

func TestScheduler_RunsJobs(t *testing.T) {
	nopLogger := zerolog.Nop()
	runner := &fakeRunner{n: 3}
	purger := &fakePurger{}
	seen := jobLog{}
	s := New(runner, purger, seen, Config{BatchSize: 25}, &nopLogger)

	s.RunScheduledPayouts()
	s.PurgeOTPs()

	assert.Equal(t, 25, runner.limit)
	assert.Equal(t, 1, purger.calls)
	assert.Equal(t, 1, seen[JobScheduledPayouts+":ok"])
	assert.Equal(t, 1, seen[JobOTPPurge+":ok"])

	runner.err = errors.New("db down")
	s.RunScheduledPayouts()
	assert.Equal(t, 1, seen[JobScheduledPayouts+":error"])
}

func TestScheduler_Start(t *testing.T) {
	nopLogger := zerolog.Nop()

	bad := New(&fakeRunner{}, &fakePurger{}, nil, Config{ScheduledPayouts: "not a cron expression"}, &nopLogger)
	assert.Error(t, bad.Start())

	good := New(&fakeRunner{}, &fakePurger{}, nil, Config{ScheduledPayouts: "@every 1m", OTPPurge: ""}, &nopLogger)
	require.NoError(t, good.Start())
	assert.Len(t, good.cron.Entries(), 1, "empty schedule disables the job")
	<-good.Stop().Done()
}
