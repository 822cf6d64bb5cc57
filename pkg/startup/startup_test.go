package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependency struct {
	name      string
	dependsOn []string
	started   *[]string
	stopped   *[]string
	startErr  error
}

func (d *fakeDependency) GetName() string { return d.name }

func (d *fakeDependency) DependsOn() []string { return d.dependsOn }

func (d *fakeDependency) Start(ctx context.Context) error {
	if d.startErr != nil {
		return d.startErr
	}
	*d.started = append(*d.started, d.name)
	return nil
}

func (d *fakeDependency) Stop(ctx context.Context) error {
	*d.stopped = append(*d.stopped, d.name)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartup_StartsDependenciesInOrder(t *testing.T) {
	var started, stopped []string

	db := &fakeDependency{name: "database", started: &started, stopped: &stopped}
	server := &fakeDependency{name: "server", dependsOn: []string{"database"}, started: &started, stopped: &stopped}

	s := NewStartup(testLogger(), 1)
	s.AddDependency(server)
	s.AddDependency(db)

	require.NoError(t, s.Start(context.Background()))

	require.Len(t, started, 2)
	assert.Equal(t, "database", started[0], "dependencies start before dependents")
	assert.Equal(t, "server", started[1])
}

func TestStartup_FailsAfterMaxAttempts(t *testing.T) {
	var started, stopped []string
	broken := &fakeDependency{name: "database", started: &started, stopped: &stopped, startErr: errors.New("refused")}

	s := NewStartup(testLogger(), 1)
	s.AddDependency(broken)

	err := s.Start(context.Background())
	assert.Error(t, err)
}

func TestStartup_StartIsIdempotentPerDependency(t *testing.T) {
	var started, stopped []string
	db := &fakeDependency{name: "database", started: &started, stopped: &stopped}
	a := &fakeDependency{name: "a", dependsOn: []string{"database"}, started: &started, stopped: &stopped}
	b := &fakeDependency{name: "b", dependsOn: []string{"database"}, started: &started, stopped: &stopped}

	s := NewStartup(testLogger(), 1)
	s.AddDependency(db)
	s.AddDependency(a)
	s.AddDependency(b)

	require.NoError(t, s.Start(context.Background()))

	dbStarts := 0
	for _, name := range started {
		if name == "database" {
			dbStarts++
		}
	}
	assert.Equal(t, 1, dbStarts, "shared dependency starts once")
}

func TestStartup_StopStopsEverything(t *testing.T) {
	var started, stopped []string
	db := &fakeDependency{name: "database", started: &started, stopped: &stopped}
	server := &fakeDependency{name: "server", dependsOn: []string{"database"}, started: &started, stopped: &stopped}

	s := NewStartup(testLogger(), 1)
	s.AddDependency(db)
	s.AddDependency(server)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	assert.Contains(t, stopped, "database")
	assert.Contains(t, stopped, "server")
}
