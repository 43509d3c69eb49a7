package ltip

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	cliffDuration   = 31556952
	vestingDuration = 94670856
)

func TestVestedRaw_BeforeIssuance(t *testing.T) {
	total := big.NewInt(94670856)
	got := vestedRaw(total, 1000, cliffDuration, vestingDuration, 500)
	assert.Equal(t, big.NewInt(0), got)
}

func TestVestedRaw_BeforeCliff(t *testing.T) {
	total := big.NewInt(94670856)
	got := vestedRaw(total, 0, cliffDuration, vestingDuration, cliffDuration-1)
	assert.Equal(t, big.NewInt(0), got)
}

func TestVestedRaw_AtCliffEndIsZero(t *testing.T) {
	// Nothing has vested the instant the cliff passes; the ramp starts
	// counting from cliffEnd, not from issuedAt.
	total := big.NewInt(vestingDuration)
	got := vestedRaw(total, 0, cliffDuration, vestingDuration, cliffDuration)
	assert.Equal(t, big.NewInt(0), got)
}

func TestVestedRaw_OneThousandSecondsAfterCliff(t *testing.T) {
	// total == vestingDuration in these reference scenarios, so 1000
	// seconds past cliffEnd vests exactly 1000 tokens.
	total := big.NewInt(vestingDuration)
	got := vestedRaw(total, 0, cliffDuration, vestingDuration, cliffDuration+1000)
	assert.Equal(t, big.NewInt(1000), got)
}

func TestVestedRaw_AfterVestingEnd(t *testing.T) {
	total := big.NewInt(vestingDuration)
	got := vestedRaw(total, 0, cliffDuration, vestingDuration, vestingDuration+1)
	assert.Equal(t, total, got)
}

func TestVestedAmount_ClampsToTotal(t *testing.T) {
	total := big.NewInt(1000)
	got := vestedAmount(total, 0, 0, 10, 1000000)
	assert.Equal(t, total, got)
}

func TestClaimableAmount_ClampsAtZero(t *testing.T) {
	vested := big.NewInt(100)
	claimed := big.NewInt(60)
	order := big.NewInt(60)
	got := claimableAmount(vested, claimed, order)
	assert.Equal(t, big.NewInt(0), got)
}

func TestClaimableAmount_Positive(t *testing.T) {
	vested := big.NewInt(1000)
	claimed := big.NewInt(200)
	order := big.NewInt(100)
	got := claimableAmount(vested, claimed, order)
	assert.Equal(t, big.NewInt(700), got)
}

func TestPayoutFromPercentage_FullOrder(t *testing.T) {
	got := payoutFromPercentage(big.NewInt(1000), 10000)
	assert.Equal(t, big.NewInt(1000), got)
}

func TestPayoutFromPercentage_HalfOrder(t *testing.T) {
	got := payoutFromPercentage(big.NewInt(1000), 5000)
	assert.Equal(t, big.NewInt(500), got)
}

func TestPayoutFromPercentage_FloorsDown(t *testing.T) {
	// 999 * 3333 / 10000 = 332.9667 -> floors to 332
	got := payoutFromPercentage(big.NewInt(999), 3333)
	assert.Equal(t, big.NewInt(332), got)
}

func TestVestedRaw_NoOverflowNearTokenCeiling(t *testing.T) {
	// total near a 128-bit ceiling; vestedRaw must not overflow the
	// intermediate total*elapsed product.
	total, _ := new(big.Int).SetString("340282366920938463463374607431768211455", 10) // 2^128-1
	got := vestedRaw(total, 0, 0, 100, 50)
	want, _ := new(big.Int).SetString("170141183460469231731687303715884105727", 10) // floor(total/2)
	assert.Equal(t, want, got)
}
