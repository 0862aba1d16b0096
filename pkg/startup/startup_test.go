package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/logging"
)

type fakeDependency struct {
	name     string
	needs    []string
	log      *[]string
	failures int
	stopErr  error
}

func (f *fakeDependency) GetName() string     { return f.name }
func (f *fakeDependency) DependsOn() []string { return f.needs }

func (f *fakeDependency) Start(_ context.Context) error {
	if f.failures > 0 {
		f.failures--
		return errors.New(f.name + " boot failed")
	}
	*f.log = append(*f.log, "start:"+f.name)
	return nil
}

func (f *fakeDependency) Stop(_ context.Context) error {
	*f.log = append(*f.log, "stop:"+f.name)
	return f.stopErr
}

func TestStart(t *testing.T) {
	t.Run("parents start before their children", func(t *testing.T) {
		var log []string
		orch := NewOrchestrator(logging.NewNopLogger(), 1)
		orch.Add(&fakeDependency{name: "http-server", needs: []string{"database"}, log: &log})
		orch.Add(&fakeDependency{name: "database", log: &log})

		require.NoError(t, orch.Start(context.Background()))
		assert.Equal(t, []string{"start:database", "start:http-server"}, log)
	})

	t.Run("shared parents start once", func(t *testing.T) {
		var log []string
		orch := NewOrchestrator(logging.NewNopLogger(), 1)
		orch.Add(&fakeDependency{name: "database", log: &log})
		orch.Add(&fakeDependency{name: "worker", needs: []string{"database"}, log: &log})
		orch.Add(&fakeDependency{name: "http-server", needs: []string{"database"}, log: &log})

		require.NoError(t, orch.Start(context.Background()))
		assert.Equal(t, []string{"start:database", "start:worker", "start:http-server"}, log)
	})

	t.Run("unregistered parent fails startup", func(t *testing.T) {
		var log []string
		orch := NewOrchestrator(logging.NewNopLogger(), 1)
		orch.Add(&fakeDependency{name: "worker", needs: []string{"database"}, log: &log})

		err := orch.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unregistered dependency 'database'")
	})

	t.Run("failed boots are retried", func(t *testing.T) {
		var log []string
		orch := NewOrchestrator(logging.NewNopLogger(), 3)
		orch.Add(&fakeDependency{name: "database", log: &log, failures: 1})

		require.NoError(t, orch.Start(context.Background()))
		assert.Equal(t, []string{"start:database"}, log)
	})

	t.Run("attempts are bounded", func(t *testing.T) {
		var log []string
		orch := NewOrchestrator(logging.NewNopLogger(), 2)
		orch.Add(&fakeDependency{name: "database", log: &log, failures: 5})

		err := orch.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "startup failed after 2 attempts")
	})
}

func TestStop(t *testing.T) {
	t.Run("stops in reverse registration order", func(t *testing.T) {
		var log []string
		orch := NewOrchestrator(logging.NewNopLogger(), 1)
		orch.Add(&fakeDependency{name: "database", log: &log})
		orch.Add(&fakeDependency{name: "http-server", needs: []string{"database"}, log: &log})

		require.NoError(t, orch.Start(context.Background()))
		log = log[:0]

		require.NoError(t, orch.Stop(context.Background()))
		assert.Equal(t, []string{"stop:http-server", "stop:database"}, log)
	})

	t.Run("stop errors do not halt remaining shutdowns", func(t *testing.T) {
		var log []string
		orch := NewOrchestrator(logging.NewNopLogger(), 1)
		orch.Add(&fakeDependency{name: "database", log: &log})
		orch.Add(&fakeDependency{name: "http-server", log: &log, stopErr: errors.New("drain timed out")})

		require.NoError(t, orch.Start(context.Background()))
		log = log[:0]

		err := orch.Stop(context.Background())
		require.Error(t, err)
		assert.Equal(t, []string{"stop:http-server", "stop:database"}, log)
	})

	t.Run("never-started dependencies are skipped", func(t *testing.T) {
		var log []string
		orch := NewOrchestrator(logging.NewNopLogger(), 1)
		orch.Add(&fakeDependency{name: "database", log: &log})

		require.NoError(t, orch.Stop(context.Background()))
		assert.Empty(t, log)
	})
}
