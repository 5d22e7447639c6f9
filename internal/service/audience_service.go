package service

import (
	"go.uber.org/zap"

	"github.com/molevo/broadcast-backend/internal/model"
	"github.com/molevo/broadcast-backend/internal/repository"
	"github.com/molevo/broadcast-backend/internal/segment"
)

// AudienceService resolves a campaign's targeting criteria to the concrete
// set of reachable customers, recomputed fresh on every dispatch pass.
type AudienceService struct {
	CustomerRepo    repository.CustomerRepositoryInterface
	SegmentRepo     repository.SegmentRepositoryInterface
	IntegrationRepo repository.IntegrationRepositoryInterface
	Log             *zap.Logger
}

// Resolve picks exactly one targeting branch. Precedence when several are
// set: explicit customer ids, then tags, then brands, then the segment.
// Do-not-disturb customers never survive any branch. An empty result is not
// an error here; the caller decides what that means for its trigger kind.
func (s *AudienceService) Resolve(c *model.Campaign) ([]model.Customer, error) {
	switch {
	case len(c.CustomerIDs) > 0:
		return s.CustomerRepo.ByIDs(c.CustomerIDs)

	case len(c.TagIDs) > 0:
		return s.CustomerRepo.ByTagIDs(c.TagIDs)

	case len(c.BrandIDs) > 0:
		integrationIDs, err := s.IntegrationRepo.IDsByBrands(c.BrandIDs)
		if err != nil {
			return nil, err
		}
		if len(integrationIDs) == 0 {
			return []model.Customer{}, nil
		}
		return s.CustomerRepo.ByIntegrationIDs(integrationIDs)

	case c.SegmentID != nil:
		return s.resolveSegment(*c.SegmentID)
	}

	return []model.Customer{}, nil
}

// resolveSegment streams the customer collection through the segment
// evaluator instead of materializing intermediate sets. Recomputing from
// scratch on every call keeps it restartable.
func (s *AudienceService) resolveSegment(segmentID int64) ([]model.Customer, error) {
	seg, err := s.SegmentRepo.GetByID(segmentID)
	if err != nil {
		return nil, err
	}
	if seg == nil {
		s.Log.Warn("campaign references missing segment", zap.Int64("segment_id", segmentID))
		return []model.Customer{}, nil
	}

	matched := []model.Customer{}
	err = s.CustomerRepo.Each(func(c *model.Customer) error {
		if segment.Matches(seg, c) {
			matched = append(matched, *c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}
