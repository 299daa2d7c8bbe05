package service

import "earn_webapp/internal/domain"

// Policy is the one place that decides who may do what
type Policy struct{}

func (Policy) IsAdmin(u *domain.User) bool {
	return u != nil && u.IsAdmin
}

// CanActFor reports whether actor may read or mutate records owned by userID
func (p Policy) CanActFor(actor *domain.User, userID string) bool {
	if actor == nil {
		return false
	}
	return actor.ID == userID || p.IsAdmin(actor)
}
