package mock

import (
	"context"

	"github.com/vladiconcure/euctr"
)

var _ euctr.TrialService = (*TrialService)(nil)

// TrialService is a mock implementation of euctr.TrialService.
type TrialService struct {
	SaveTrialFn  func(ctx context.Context, trial *euctr.Trial) error
	FindTrialsFn func(ctx context.Context, filter euctr.TrialFilter) ([]*euctr.StoredTrial, error)
}

func (s *TrialService) SaveTrial(ctx context.Context, trial *euctr.Trial) error {
	return s.SaveTrialFn(ctx, trial)
}

func (s *TrialService) FindTrials(ctx context.Context, filter euctr.TrialFilter) ([]*euctr.StoredTrial, error) {
	return s.FindTrialsFn(ctx, filter)
}
