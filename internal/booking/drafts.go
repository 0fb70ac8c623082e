package booking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ExpireOverdueDrafts marks every active draft past its expiry as expired.
// Called periodically by the draft expiry worker; the creation orchestrator
// only expires drafts that actually reach booking.
func (s *Service) ExpireOverdueDrafts(ctx context.Context) (int, error) {
	drafts, err := s.repo.FindOverdueActiveDrafts(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("find overdue drafts: %w", err)
	}

	expired := 0
	for _, d := range drafts {
		ok, err := s.repo.ExpireDraft(ctx, d.ID, nil)
		if err != nil {
			s.log.Error("expire overdue draft", zap.String("draft_id", d.ID.String()), zap.Error(err))
			continue
		}
		if ok {
			expired++
		}
	}

	return expired, nil
}
