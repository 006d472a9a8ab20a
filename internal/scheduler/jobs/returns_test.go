package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantgem/backend/internal/returns"
	"github.com/wonny/quantgem/backend/pkg/logger"
)

type fakeRunner struct {
	result  *returns.RunResult
	err     error
	symbols []string
	calls   int
}

func (f *fakeRunner) Run(ctx context.Context, symbols []string) (*returns.RunResult, error) {
	f.calls++
	f.symbols = symbols
	return f.result, f.err
}

func TestReturnsJob(t *testing.T) {
	tests := []struct {
		name    string
		result  *returns.RunResult
		err     error
		wantErr bool
	}{
		{"all ok", &returns.RunResult{Symbols: 3, Succeeded: 3}, nil, false},
		{"partial failure", &returns.RunResult{Symbols: 3, Succeeded: 2, Failed: 1}, nil, false},
		{"all failed", &returns.RunResult{Symbols: 2, Failed: 2}, nil, true},
		{"no symbols", &returns.RunResult{}, nil, false},
		{"runner error", nil, context.Canceled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{result: tt.result, err: tt.err}
			job := NewReturnsJob(runner, "0 30 18 * * MON-FRI", logger.Nop())

			err := job.Run(context.Background())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, 1, runner.calls)
			assert.Nil(t, runner.symbols, "scheduled run covers every symbol")
		})
	}
}

func TestReturnsJob_WrapsRunnerError(t *testing.T) {
	job := NewReturnsJob(&fakeRunner{err: context.DeadlineExceeded}, "@daily", logger.Nop())

	err := job.Run(context.Background())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "returns_recompute", job.Name())
	assert.Equal(t, "@daily", job.Schedule())
}
