package service

import (
	"context"
	"errors"

	"sprout_prelaunch/internal/identity"
	"sprout_prelaunch/internal/mailer"
	"sprout_prelaunch/internal/model"
)

var (
	ErrReferralCodeExhausted = errors.New("could not allocate a unique referral code")
)

type SignupServiceI interface {
	SignUp(ctx context.Context, in SignupInput) *model.SignupResult
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account, referralRewardThreshold int) error
	GetAccountByReferralCode(ctx context.Context, code string) (*model.Account, error)
	CountAccounts(ctx context.Context) (int64, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
}

type IdentityService interface {
	Register(ctx context.Context, email, password, displayName string) (string, error)
	Unregister(ctx context.Context, id string) error
	FindByEmail(ctx context.Context, email string) (*identity.Credential, error)
}

type ConfirmationMailer interface {
	SendConfirmation(ctx context.Context, to, name string, tier model.RewardTier) mailer.Result
}
