package mock

import (
	"context"

	"github.com/fwojciec/docparse"
)

var _ docparse.RunService = (*RunService)(nil)

// RunService is a mock implementation of docparse.RunService.
type RunService struct {
	CreateRunFn   func(ctx context.Context, run *docparse.Run) error
	FindRunByIDFn func(ctx context.Context, id string) (*docparse.Run, error)
	FindRunsFn    func(ctx context.Context, filter docparse.RunFilter) ([]*docparse.Run, error)
}

func (s *RunService) CreateRun(ctx context.Context, run *docparse.Run) error {
	return s.CreateRunFn(ctx, run)
}

func (s *RunService) FindRunByID(ctx context.Context, id string) (*docparse.Run, error) {
	return s.FindRunByIDFn(ctx, id)
}

func (s *RunService) FindRuns(ctx context.Context, filter docparse.RunFilter) ([]*docparse.Run, error) {
	return s.FindRunsFn(ctx, filter)
}
