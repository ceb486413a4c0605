package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sprout_prelaunch/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

type Account struct {
	ID                string         `db:"id"`
	Username          string         `db:"username"`
	Email             string         `db:"email"`
	UserType          string         `db:"user_type"`
	RewardTier        string         `db:"reward_tier"`
	ReferralCode      string         `db:"referral_code"`
	ReferredBy        *string        `db:"referred_by"`
	Referrals         int            `db:"referrals"`
	EliteMonthsEarned int            `db:"elite_months_earned"`
	PlantsListed      int            `db:"plants_listed"`
	PlantsTraded      int            `db:"plants_traded"`
	RewardPoints      int            `db:"reward_points"`
	FavoritePlants    pq.StringArray `db:"favorite_plants"`
	Followers         pq.StringArray `db:"followers"`
	Following         pq.StringArray `db:"following"`
	CreatedAt         time.Time      `db:"created_at"`
}

func (a *Account) toModel() *model.Account {
	return &model.Account{
		ID:                a.ID,
		Username:          a.Username,
		Email:             a.Email,
		UserType:          model.Role(a.UserType),
		RewardTier:        model.RewardTier(a.RewardTier),
		ReferralCode:      a.ReferralCode,
		ReferredBy:        a.ReferredBy,
		Referrals:         a.Referrals,
		EliteMonthsEarned: a.EliteMonthsEarned,
		PlantsListed:      a.PlantsListed,
		PlantsTraded:      a.PlantsTraded,
		RewardPoints:      a.RewardPoints,
		FavoritePlants:    a.FavoritePlants,
		Followers:         a.Followers,
		Following:         a.Following,
		CreatedAt:         a.CreatedAt,
	}
}

// CreateAccount inserts the new account and, when the account carries a
// referrer, credits that referrer in the same transaction: the referrer
// row is locked, its counter incremented, and on reaching
// referralRewardThreshold the counter resets to zero while
// elite_months_earned gains one. Concurrent referred signups therefore
// cannot lose a credit.
func (r *Repository) CreateAccount(ctx context.Context, account *model.Account, referralRewardThreshold int) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("accounts").
			SetMap(map[string]interface{}{
				"id":                  account.ID,
				"username":            account.Username,
				"email":               account.Email,
				"user_type":           string(account.UserType),
				"reward_tier":         string(account.RewardTier),
				"referral_code":       account.ReferralCode,
				"referred_by":         account.ReferredBy,
				"referrals":           account.Referrals,
				"elite_months_earned": account.EliteMonthsEarned,
				"plants_listed":       account.PlantsListed,
				"plants_traded":       account.PlantsTraded,
				"reward_points":       account.RewardPoints,
				"favorite_plants":     pq.Array(account.FavoritePlants),
				"followers":           pq.Array(account.Followers),
				"following":           pq.Array(account.Following),
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build account insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "accounts_referral_code_key" {
				return ErrReferralCodeTaken
			}
			return fmt.Errorf("failed to insert account: %w", err)
		}

		if account.ReferredBy != nil {
			if err := creditReferrer(ctx, tx, *account.ReferredBy, referralRewardThreshold); err != nil {
				return err
			}
		}

		return nil
	})
}

func creditReferrer(ctx context.Context, tx *sqlx.Tx, referrerID string, threshold int) error {
	query, args, err := squirrel.
		Select("referrals", "elite_months_earned").
		From("accounts").
		Where(squirrel.Eq{"id": referrerID}).
		Suffix("FOR UPDATE").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build referrer select query: %w", err)
	}

	var current struct {
		Referrals         int `db:"referrals"`
		EliteMonthsEarned int `db:"elite_months_earned"`
	}
	err = tx.GetContext(ctx, &current, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Referrer vanished between lookup and credit. The new
			// signup still stands.
			return nil
		}
		return fmt.Errorf("failed to lock referrer row: %w", err)
	}

	referrals, eliteMonths := nextReferralCredit(current.Referrals, current.EliteMonthsEarned, threshold)

	updateQuery, updateArgs, err := squirrel.
		Update("accounts").
		SetMap(map[string]interface{}{
			"referrals":           referrals,
			"elite_months_earned": eliteMonths,
		}).
		Where(squirrel.Eq{"id": referrerID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build referrer update query: %w", err)
	}

	_, err = tx.ExecContext(ctx, updateQuery, updateArgs...)
	if err != nil {
		return fmt.Errorf("failed to update referrer: %w", err)
	}

	return nil
}

// nextReferralCredit applies one referred signup to a referrer's
// counters: the counter grows by one, and on reaching the threshold it
// resets to zero while the earned elite months grow by one.
func nextReferralCredit(referrals, eliteMonths, threshold int) (int, int) {
	newCount := referrals + 1
	if newCount >= threshold {
		return 0, eliteMonths + 1
	}
	return newCount, eliteMonths
}

func (r *Repository) GetAccountByReferralCode(ctx context.Context, code string) (*model.Account, error) {
	query, args, err := squirrel.
		Select("*").
		From("accounts").
		Where(squirrel.Eq{"referral_code": code}).
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var account Account
	err = r.db.GetContext(ctx, &account, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return account.toModel(), nil
}

func (r *Repository) CountAccounts(ctx context.Context) (int64, error) {
	query, args, err := squirrel.
		Select("COUNT(*)").
		From("accounts").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	err = r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return count, nil
}

func (r *Repository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	query, args, err := squirrel.
		Select("1").
		From("accounts").
		Where(squirrel.Eq{"referral_code": code}).
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = r.db.GetContext(ctx, &one, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
