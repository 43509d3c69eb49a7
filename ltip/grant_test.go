package ltip

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refGrant() *Grant {
	cfg := Config{TokenID: "ft.test", CliffDuration: cliffDuration, VestingDuration: vestingDuration, OwnerID: "owner"}
	return NewGrant("alice", 0, cfg, big.NewInt(vestingDuration))
}

// Scenario 1: early claim + early terminate cancels.
func TestScenario1_EarlyClaimEarlyTerminateCancels(t *testing.T) {
	g := refGrant()

	claimed := g.Claim(cliffDuration + 1000)
	assert.Equal(t, big.NewInt(1000), claimed)
	assert.Equal(t, big.NewInt(1000), g.OrderAmount)

	released, err := g.Terminate(cliffDuration - 86400)
	require.Nil(t, err)
	assert.Equal(t, big.NewInt(0), g.TotalAmount)
	assert.Equal(t, big.NewInt(0), g.ClaimedAmount)
	assert.Equal(t, big.NewInt(0), g.OrderAmount)
	assert.Equal(t, big.NewInt(vestingDuration), released)
}

// Scenario 2: buy then later terminate preserves paid.
func TestScenario2_BuyThenLaterTerminatePreservesPaid(t *testing.T) {
	g := refGrant()

	g.Claim(cliffDuration + 1000)
	payout := g.Buy(10000)
	assert.Equal(t, big.NewInt(1000), payout)
	assert.Equal(t, big.NewInt(1000), g.ClaimedAmount)
	assert.Equal(t, big.NewInt(0), g.OrderAmount)

	_, err := g.Terminate(cliffDuration + 1000)
	require.Nil(t, err)
	assert.Equal(t, big.NewInt(1000), g.TotalAmount)
	assert.Equal(t, big.NewInt(1000), g.ClaimedAmount)
	assert.Equal(t, big.NewInt(0), g.OrderAmount)
}

// Scenario 3: terminate between claim and payout cuts the order.
func TestScenario3_TerminateBetweenClaimAndPayoutCutsOrder(t *testing.T) {
	g := refGrant()

	g.Claim(cliffDuration + 1000)
	_, err := g.Terminate(cliffDuration + 500)
	require.Nil(t, err)

	assert.Equal(t, big.NewInt(500), g.TotalAmount)
	assert.Equal(t, big.NewInt(500), g.OrderAmount)
	assert.Equal(t, big.NewInt(0), g.ClaimedAmount)
}

// Scenario 4: post-buy terminate-earlier clamps down to claimed.
func TestScenario4_PostBuyTerminateEarlierClampsToClaimed(t *testing.T) {
	g := refGrant()

	g.Claim(cliffDuration + 1000)
	g.Buy(10000)
	_, err := g.Terminate(cliffDuration + 500)
	require.Nil(t, err)

	assert.Equal(t, big.NewInt(1000), g.TotalAmount)
	assert.Equal(t, big.NewInt(0), g.OrderAmount)
	assert.Equal(t, big.NewInt(1000), g.ClaimedAmount)
}

// Scenario 5: terminate before cliff zeros the grant.
func TestScenario5_TerminateBeforeCliffZeroesGrant(t *testing.T) {
	g := refGrant()

	_, err := g.Terminate(cliffDuration - 1000)
	require.Nil(t, err)
	assert.Equal(t, big.NewInt(0), g.TotalAmount)
}

// Scenario 6: double terminate fails.
func TestScenario6_DoubleTerminateFails(t *testing.T) {
	g := refGrant()

	_, err := g.Terminate(cliffDuration + 5000)
	require.Nil(t, err)
	assert.Equal(t, big.NewInt(5000), g.TotalAmount)

	snapshotBefore := g.Snapshot()
	_, err2 := g.Terminate(cliffDuration + 1000)
	require.NotNil(t, err2)
	assert.Equal(t, ErrAlreadyTerminated, err2.Code)
	assert.Equal(t, snapshotBefore.TotalAmount, g.TotalAmount)
}

func TestClaim_NoOpWhenNothingClaimable(t *testing.T) {
	g := refGrant()
	delta := g.Claim(0)
	assert.Equal(t, big.NewInt(0), delta)
	assert.Equal(t, big.NewInt(0), g.OrderAmount)
}

func TestClaim_IsCumulative(t *testing.T) {
	g := refGrant()
	g.Claim(cliffDuration + 1000)
	g.Claim(cliffDuration + 2500)
	assert.Equal(t, big.NewInt(2500), g.OrderAmount)
}

func TestBuy_NoOpOnEmptyOrder(t *testing.T) {
	g := refGrant()
	payout := g.Buy(10000)
	assert.Equal(t, big.NewInt(0), payout)
}

func TestBuy_PartialPercentage(t *testing.T) {
	g := refGrant()
	g.Claim(cliffDuration + 1000)
	payout := g.Buy(5000)
	assert.Equal(t, big.NewInt(500), payout)
	assert.Equal(t, big.NewInt(500), g.OrderAmount)
	assert.Equal(t, big.NewInt(500), g.ClaimedAmount)
}

func TestSnapshotRestore_RoundTrips(t *testing.T) {
	g := refGrant()
	g.Claim(cliffDuration + 1000)
	snap := g.Snapshot()

	g.Buy(10000)
	assert.Equal(t, big.NewInt(1000), g.ClaimedAmount)

	g.Restore(snap)
	assert.Equal(t, big.NewInt(0), g.ClaimedAmount)
	assert.Equal(t, big.NewInt(1000), g.OrderAmount)
}

func TestInvariants_ClaimedPlusOrderNeverExceedsTotal(t *testing.T) {
	g := refGrant()
	g.Claim(vestingDuration + 1) // fully vested
	g.Buy(3000)
	sum := new(big.Int).Add(g.ClaimedAmount, g.OrderAmount)
	assert.True(t, sum.Cmp(g.TotalAmount) <= 0)
}
