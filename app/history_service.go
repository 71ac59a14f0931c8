package app

import (
	"context"
	"time"

	"shrimp/domain/market"
	"shrimp/internal/errors"
	"shrimp/ports"
)

// HistoricResult pairs the requested month's sales with the month before,
// the comparison the history view renders.
type HistoricResult struct {
	Current  []market.HistoricSale `json:"current"`
	Previous []market.HistoricSale `json:"previous"`
}

// HistoryService serves the historic sales view.
type HistoryService struct {
	store ports.TransactionStore
}

// NewHistoryService creates a new history service
func NewHistoryService(store ports.TransactionStore) *HistoryService {
	return &HistoryService{store: store}
}

// Get returns the filtered sales of the requested month and its predecessor.
func (s *HistoryService) Get(ctx context.Context, filter market.HistoricFilter) (*HistoricResult, error) {
	if filter.Year < 2000 || filter.Year > 2100 {
		return nil, errors.InvalidInput("year out of range")
	}
	if filter.Month < time.January || filter.Month > time.December {
		return nil, errors.InvalidInput("month out of range")
	}

	current, previous, err := s.store.FetchHistoric(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &HistoricResult{Current: current, Previous: previous}, nil
}
