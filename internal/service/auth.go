package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/logger"
	"earn_webapp/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 10
	minPasswordLength = 6
	referralPrefix    = "TAP"
	referralAlphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	referralCodeLen   = 8
	maxCodeAttempts   = 5
)

// AuthService registers users and checks credentials
type AuthService struct {
	store        repository.Store
	isAdminEmail func(email string) bool
}

func NewAuthService(store repository.Store, isAdminEmail func(string) bool) *AuthService {
	if isAdminEmail == nil {
		isAdminEmail = func(string) bool { return false }
	}
	return &AuthService{store: store, isAdminEmail: isAdminEmail}
}

type RegisterInput struct {
	Email      string
	Password   string
	Username   *string
	ReferredBy string // referral code of the inviting user
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, validationErr(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	var referredBy *string
	if code := strings.TrimSpace(in.ReferredBy); code != "" {
		referrer, err := s.store.GetUserByReferralCode(ctx, strings.ToUpper(code))
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidReferral
		}
		if err != nil {
			return nil, err
		}
		referredBy = &referrer.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		Email:        email,
		Username:     in.Username,
		PasswordHash: string(hash),
		IsAdmin:      s.isAdminEmail(email),
		ReferredBy:   referredBy,
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		u.ID = uuid.NewString()
		if u.ReferralCode, err = GenerateReferralCode(); err != nil {
			return nil, err
		}
		err = s.store.CreateUser(ctx, u)
		if err == nil {
			logger.Info("user registered", "user_id", u.ID, "admin", u.IsAdmin, "referred", referredBy != nil)
			return u, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		// lost a race on the email, or the referral code collided
		if _, lookupErr := s.store.GetUserByEmail(ctx, email); lookupErr == nil {
			return nil, ErrEmailTaken
		}
	}
	return nil, fmt.Errorf("allocate referral code: %w", err)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	return u, err
}

// GenerateReferralCode returns "TAP" followed by 8 random base36 characters
func GenerateReferralCode() (string, error) {
	var b strings.Builder
	b.WriteString(referralPrefix)
	max := big.NewInt(int64(len(referralAlphabet)))
	for i := 0; i < referralCodeLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(referralAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validationErr("invalid email")
	}
	return email, nil
}
