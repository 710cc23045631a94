package store

import (
	"context"
	"errors"

	"github.com/franz/mldb/internal/util"
)

// GetExperimentDetails gathers status, losses and learning rates. Only a
// missing status is an error; an experiment with no losses yet gets an
// empty loss map.
func (s *sqlStore) GetExperimentDetails(ctx context.Context, id string) (*ExperimentDetails, error) {
	status, err := s.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}

	losses, err := s.GetLosses(ctx, id)
	if errors.Is(err, util.ErrNoData) {
		losses = map[string]*LossSeries{}
	} else if err != nil {
		return nil, err
	}

	lrs, err := s.GetLearningRates(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ExperimentDetails{ExpID: id, Status: status, Losses: losses, LRs: lrs}, nil
}
