package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"sprout_prelaunch/internal/identity"
	"sprout_prelaunch/internal/model"
	"sprout_prelaunch/internal/repository"
	"sprout_prelaunch/pkg/logger"

	"go.uber.org/zap"
)

const (
	minNameLen     = 2
	minPasswordLen = 6

	referralCodeLength   = 6
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// The uniqueness check is query-before-insert, so generation is
	// bounded instead of looping until a free code turns up.
	referralCodeAttempts = 20

	emailSendTimeout = 10 * time.Second
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	msgAlreadySignedUp = "You're already signed up! We'll keep you posted."
	msgAccountProblem  = "There was a problem creating your account. Please double-check your details."
	msgGenericError    = "Something went wrong on our end. Please try again later."
	msgEmailCaveat     = " (Note: There was an issue sending your confirmation email, but your account is safe!)"
)

// RewardConfig holds the signup-order thresholds. Tier2Limit of zero
// disables the second tier; ReferralThreshold is the counter value at
// which a referrer earns an elite month and the counter resets.
type RewardConfig struct {
	Tier1Limit        int64 `yaml:"tier1Limit"`
	Tier2Limit        int64 `yaml:"tier2Limit"`
	ReferralThreshold int   `yaml:"referralThreshold"`
}

type SignupInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	UserType        string
	ReferralCode    string
}

type SignupService struct {
	repo     AccountRepository
	identity IdentityService
	mail     ConfirmationMailer
	rewards  RewardConfig
}

func NewSignupService(repo AccountRepository, id IdentityService, mail ConfirmationMailer, rewards RewardConfig) *SignupService {
	if rewards.Tier1Limit <= 0 {
		rewards.Tier1Limit = 100
	}
	if rewards.ReferralThreshold <= 0 {
		rewards.ReferralThreshold = 10
	}
	return &SignupService{
		repo:     repo,
		identity: id,
		mail:     mail,
		rewards:  rewards,
	}
}

// SignUp runs the whole signup workflow and always returns a composed
// result; nothing below this method reaches the caller as a raw error.
func (s *SignupService) SignUp(ctx context.Context, in SignupInput) *model.SignupResult {
	log := logger.Logger()

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if msg := validate(in); msg != "" {
		return failure(msg)
	}

	// Friendly pre-check; identity.Register stays the authoritative
	// duplicate rejection.
	_, err := s.identity.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return failure(msgAlreadySignedUp)
	case !errors.Is(err, identity.ErrNotFound):
		log.Error("failed to check for existing account", zap.Error(err))
		return failure(msgGenericError)
	}

	var referredBy *string
	if code := strings.ToUpper(strings.TrimSpace(in.ReferralCode)); code != "" {
		referrer, err := s.repo.GetAccountByReferralCode(ctx, code)
		switch {
		case err == nil:
			referredBy = &referrer.ID
		case errors.Is(err, repository.ErrNotFound):
			// Unknown code is not an error; the signup proceeds
			// without a referrer.
		default:
			log.Error("failed to resolve referral code", zap.Error(err))
			return failure(msgGenericError)
		}
	}

	count, err := s.repo.CountAccounts(ctx)
	if err != nil {
		log.Error("failed to count accounts", zap.Error(err))
		return failure(msgGenericError)
	}
	tier, message := s.rewardFor(count)

	referralCode, err := s.generateReferralCode(ctx)
	if err != nil {
		log.Error("failed to generate referral code", zap.Error(err))
		return failure(msgGenericError)
	}

	id, err := s.identity.Register(ctx, in.Email, in.Password, in.Name)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return failure(msgAlreadySignedUp)
		}
		log.Error("failed to create identity record", zap.Error(err))
		return failure(msgAccountProblem)
	}

	account := &model.Account{
		ID:             id,
		Username:       in.Name,
		Email:          in.Email,
		UserType:       model.Role(in.UserType),
		RewardTier:     tier,
		ReferralCode:   referralCode,
		ReferredBy:     referredBy,
		FavoritePlants: []string{},
		Followers:      []string{},
		Following:      []string{},
	}

	if err := s.persistAccount(ctx, account); err != nil {
		log.Error("failed to persist account", zap.String("id", id), zap.Error(err))
		// The credential is already durable; remove it so the email
		// is not locked out of future attempts.
		if cleanupErr := s.identity.Unregister(ctx, id); cleanupErr != nil {
			log.Error("failed to remove orphaned credential",
				zap.String("id", id), zap.Error(cleanupErr))
		}
		return failure(msgGenericError)
	}

	emailCtx, cancel := context.WithTimeout(ctx, emailSendTimeout)
	defer cancel()
	if res := s.mail.SendConfirmation(emailCtx, in.Email, in.Name, tier); !res.Success {
		log.Warn("confirmation email not sent",
			zap.String("email", in.Email),
			zap.String("reason", res.Message),
		)
		message += msgEmailCaveat
	}

	return &model.SignupResult{
		Success:      true,
		Message:      message,
		ReferralCode: account.ReferralCode,
		Timestamp:    time.Now().UnixMilli(),
	}
}

// persistAccount writes the account, absorbing the one race the
// query-before-insert uniqueness check leaves open: a concurrent signup
// inserting the same referral code first. A single fresh code settles
// the collision.
func (s *SignupService) persistAccount(ctx context.Context, account *model.Account) error {
	err := s.repo.CreateAccount(ctx, account, s.rewards.ReferralThreshold)
	if !errors.Is(err, repository.ErrReferralCodeTaken) {
		return err
	}

	logger.Logger().Warn("referral code collided on insert, regenerating",
		zap.String("code", account.ReferralCode))

	code, genErr := s.generateReferralCode(ctx)
	if genErr != nil {
		return genErr
	}
	account.ReferralCode = code

	return s.repo.CreateAccount(ctx, account, s.rewards.ReferralThreshold)
}

func validate(in SignupInput) string {
	if len(in.Name) < minNameLen {
		return "Name must be at least 2 characters."
	}
	if !emailPattern.MatchString(in.Email) {
		return "Please enter a valid email address."
	}
	if len(in.Password) < minPasswordLen {
		return "Password must be at least 6 characters."
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		return "Passwords don't match."
	}
	if in.UserType != string(model.RoleBuyer) && in.UserType != string(model.RoleSeller) {
		return "Please select whether you're primarily a buyer or a seller."
	}
	return ""
}

func (s *SignupService) rewardFor(count int64) (model.RewardTier, string) {
	switch {
	case count < s.rewards.Tier1Limit:
		return model.TierEarlyBird1, fmt.Sprintf(
			"Congratulations! You're one of our first %d users and get 1 month of the elite plan!",
			s.rewards.Tier1Limit)
	case s.rewards.Tier2Limit > 0 && count < s.rewards.Tier2Limit:
		return model.TierEarlyBird2, fmt.Sprintf(
			"Congratulations! You're one of our first %d users and get 2 weeks of the elite plan!",
			s.rewards.Tier2Limit)
	default:
		return model.TierStandard, fmt.Sprintf(
			"You've successfully signed up! While the first %d spots are taken, you can still get a free month of the elite plan by referring friends.",
			s.rewards.Tier1Limit)
	}
}

func (s *SignupService) generateReferralCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}

		exists, err := s.repo.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrReferralCodeExhausted
}

func randomCode() (string, error) {
	buf := make([]byte, referralCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
	}
	return string(buf), nil
}

func failure(message string) *model.SignupResult {
	return &model.SignupResult{
		Success:   false,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}
}
