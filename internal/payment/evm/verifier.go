// Package evm verifies premium pack purchases against an EVM chain: a
// payment reference is a transaction hash, and the transaction must carry a
// successful ERC-20 transfer of the payment token from the buyer to the
// treasury for at least the pack price.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/polydraft/polydraft/internal/domain"
)

// transferTopic is keccak256("Transfer(address,address,uint256)"), the first
// topic of every ERC-20 Transfer log.
var transferTopic = ethcrypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Verifier implements domain.PaymentVerifier against an Ethereum-compatible
// JSON-RPC endpoint.
type Verifier struct {
	client   *ethclient.Client
	token    common.Address
	treasury common.Address
}

// Config holds the chain parameters for payment verification.
type Config struct {
	RPCURL   string
	Token    string // ERC-20 payment token contract (USDC)
	Treasury string // address purchases must be paid to
}

// New dials the RPC endpoint and returns a Verifier.
func New(ctx context.Context, cfg Config) (*Verifier, error) {
	if !common.IsHexAddress(cfg.Token) {
		return nil, fmt.Errorf("evm: invalid token address %q", cfg.Token)
	}
	if !common.IsHexAddress(cfg.Treasury) {
		return nil, fmt.Errorf("evm: invalid treasury address %q", cfg.Treasury)
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", cfg.RPCURL, err)
	}

	return &Verifier{
		client:   client,
		token:    common.HexToAddress(cfg.Token),
		treasury: common.HexToAddress(cfg.Treasury),
	}, nil
}

// Close releases the underlying RPC connection.
func (v *Verifier) Close() {
	v.client.Close()
}

// Verify checks that reference is the hash of a mined, successful transaction
// containing a token transfer of at least expectedAmount from buyer to the
// treasury. A transaction the node has not seen verifies as false without
// error, so callers can treat it as a payment that has not landed yet.
func (v *Verifier) Verify(ctx context.Context, reference, buyer string, expectedAmount uint64) (bool, error) {
	if len(reference) != 66 || reference[:2] != "0x" {
		return false, fmt.Errorf("evm: malformed payment reference %q", reference)
	}
	if !common.IsHexAddress(buyer) {
		return false, fmt.Errorf("evm: invalid buyer address %q", buyer)
	}

	receipt, err := v.client.TransactionReceipt(ctx, common.HexToHash(reference))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		return false, fmt.Errorf("evm: fetch receipt %s: %w", reference, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return false, nil
	}

	want := new(big.Int).SetUint64(expectedAmount)
	buyerAddr := common.HexToAddress(buyer)
	for _, lg := range receipt.Logs {
		if matchesTransfer(lg, v.token, buyerAddr, v.treasury, want) {
			return true, nil
		}
	}

	return false, nil
}

// matchesTransfer reports whether lg is a Transfer of at least want tokens
// of the given contract from the buyer to the treasury.
func matchesTransfer(lg *types.Log, token, from, to common.Address, want *big.Int) bool {
	if lg.Address != token {
		return false
	}
	if len(lg.Topics) != 3 || lg.Topics[0] != transferTopic {
		return false
	}
	if common.BytesToAddress(lg.Topics[1].Bytes()) != from {
		return false
	}
	if common.BytesToAddress(lg.Topics[2].Bytes()) != to {
		return false
	}
	amount := new(big.Int).SetBytes(lg.Data)
	return amount.Cmp(want) >= 0
}

// Compile-time interface check.
var _ domain.PaymentVerifier = (*Verifier)(nil)
