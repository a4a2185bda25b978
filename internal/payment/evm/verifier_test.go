package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
)

var (
	testToken    = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	testBuyer    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testTreasury = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func transferLog(token, from, to common.Address, amount *big.Int) *types.Log {
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			transferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(amount.Bytes(), 32),
	}
}

func TestMatchesTransfer(t *testing.T) {
	want := big.NewInt(5_000_000) // 5 USDC at 6 decimals

	tests := []struct {
		name string
		log  *types.Log
		ok   bool
	}{
		{
			name: "exact amount",
			log:  transferLog(testToken, testBuyer, testTreasury, big.NewInt(5_000_000)),
			ok:   true,
		},
		{
			name: "overpayment accepted",
			log:  transferLog(testToken, testBuyer, testTreasury, big.NewInt(6_000_000)),
			ok:   true,
		},
		{
			name: "underpayment rejected",
			log:  transferLog(testToken, testBuyer, testTreasury, big.NewInt(4_999_999)),
			ok:   false,
		},
		{
			name: "wrong token contract",
			log:  transferLog(testTreasury, testBuyer, testTreasury, big.NewInt(5_000_000)),
			ok:   false,
		},
		{
			name: "wrong recipient",
			log:  transferLog(testToken, testBuyer, testBuyer, big.NewInt(5_000_000)),
			ok:   false,
		},
		{
			name: "wrong sender",
			log:  transferLog(testToken, testTreasury, testTreasury, big.NewInt(5_000_000)),
			ok:   false,
		},
		{
			name: "not a transfer event",
			log: &types.Log{
				Address: testToken,
				Topics:  []common.Hash{common.HexToHash("0xdead")},
				Data:    common.LeftPadBytes(big.NewInt(5_000_000).Bytes(), 32),
			},
			ok: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, matchesTransfer(tt.log, testToken, testBuyer, testTreasury, want))
		})
	}
}
