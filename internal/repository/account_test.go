package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextReferralCredit(t *testing.T) {
	tests := []struct {
		name                string
		referrals           int
		eliteMonths         int
		threshold           int
		expectedReferrals   int
		expectedEliteMonths int
	}{
		{
			name:                "first referral",
			referrals:           0,
			eliteMonths:         0,
			threshold:           10,
			expectedReferrals:   1,
			expectedEliteMonths: 0,
		},
		{
			name:                "one short of the threshold",
			referrals:           8,
			eliteMonths:         0,
			threshold:           10,
			expectedReferrals:   9,
			expectedEliteMonths: 0,
		},
		{
			name:                "tenth referral resets counter and earns a month",
			referrals:           9,
			eliteMonths:         0,
			threshold:           10,
			expectedReferrals:   0,
			expectedEliteMonths: 1,
		},
		{
			name:                "second reward cycle",
			referrals:           9,
			eliteMonths:         3,
			threshold:           10,
			expectedReferrals:   0,
			expectedEliteMonths: 4,
		},
		{
			name:                "custom threshold",
			referrals:           2,
			eliteMonths:         0,
			threshold:           3,
			expectedReferrals:   0,
			expectedEliteMonths: 1,
		},
		{
			name:                "counter already past threshold still resets",
			referrals:           11,
			eliteMonths:         1,
			threshold:           10,
			expectedReferrals:   0,
			expectedEliteMonths: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			referrals, eliteMonths := nextReferralCredit(tt.referrals, tt.eliteMonths, tt.threshold)
			assert.Equal(t, tt.expectedReferrals, referrals)
			assert.Equal(t, tt.expectedEliteMonths, eliteMonths)
		})
	}
}
