package service

import (
	"context"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/repository"
)

type ReferralSummary struct {
	Code      string            `json:"referralCode"`
	Count     int               `json:"count"`
	Referrals []domain.Referral `json:"referrals"`
}

type ReferralService struct {
	store repository.UserStore
}

func NewReferralService(store repository.UserStore) *ReferralService {
	return &ReferralService{store: store}
}

// Summary lists the users who signed up with userID's referral code. Emails are masked.
func (s *ReferralService) Summary(ctx context.Context, userID string) (*ReferralSummary, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	referred, err := s.store.ListReferrals(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &ReferralSummary{Code: u.ReferralCode, Count: len(referred), Referrals: make([]domain.Referral, 0, len(referred))}
	for _, r := range referred {
		out.Referrals = append(out.Referrals, domain.Referral{
			ID:        r.ID,
			Email:     domain.MaskEmail(r.Email),
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}
