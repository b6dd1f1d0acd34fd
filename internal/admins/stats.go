package admins

import (
	"context"
	"time"

	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
)

const growthMonths = 12

func (s *service) Stats(ctx context.Context) (*StatsDTO, error) {
	totalWholesalers, err := s.wholesalers.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count wholesalers")
	}
	totalPharmacies, err := s.pharmacies.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pharmacies")
	}
	pendingWholesalers, err := s.wholesalers.CountByStatus(ctx, enums.AccountStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending wholesalers")
	}
	pendingPharmacies, err := s.pharmacies.CountByStatus(ctx, enums.AccountStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending pharmacies")
	}
	return &StatsDTO{
		TotalWholesalers: totalWholesalers,
		TotalPharmacies:  totalPharmacies,
		PendingApprovals: pendingWholesalers + pendingPharmacies,
	}, nil
}

// WholesalerGrowth returns one point per month for the trailing year, oldest
// first, with empty months reported as zero.
func (s *service) WholesalerGrowth(ctx context.Context) ([]GrowthPoint, error) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(growthMonths - 1), 0)

	stamps, err := s.wholesalers.CreatedSince(ctx, start)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wholesaler signups")
	}
	counts := make(map[string]int64, growthMonths)
	for _, ts := range stamps {
		counts[ts.UTC().Format("2006-01")]++
	}

	points := make([]GrowthPoint, 0, growthMonths)
	for i := 0; i < growthMonths; i++ {
		period := start.AddDate(0, i, 0).Format("2006-01")
		points = append(points, GrowthPoint{Period: period, Count: counts[period]})
	}
	return points, nil
}
