package mocks

import (
	"context"

	"sprout_prelaunch/internal/identity"
	"sprout_prelaunch/internal/mailer"
	"sprout_prelaunch/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) CreateAccount(ctx context.Context, account *model.Account, referralRewardThreshold int) error {
	args := m.Called(ctx, account, referralRewardThreshold)
	return args.Error(0)
}

func (m *MockAccountRepository) GetAccountByReferralCode(ctx context.Context, code string) (*model.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) CountAccounts(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) Register(ctx context.Context, email, password, displayName string) (string, error) {
	args := m.Called(ctx, email, password, displayName)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityService) Unregister(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockIdentityService) FindByEmail(ctx context.Context, email string) (*identity.Credential, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Credential), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendConfirmation(ctx context.Context, to, name string, tier model.RewardTier) mailer.Result {
	args := m.Called(ctx, to, name, tier)
	return args.Get(0).(mailer.Result)
}
