package submitter

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

func ethereumCallMsg(from common.Address, to *common.Address, data []byte) ethereum.CallMsg {
	return ethereum.CallMsg{From: from, To: to, Data: data}
}

// destClient wraps the single destination-chain connection this relay
// submits to. Unlike the teacher's multi-chain client map, there is exactly
// one of these per process: submissions are strictly sequential and the
// signer's nonce is tracked with a plain counter, not a concurrent
// per-chain nonce manager.
type destClient struct {
	eth         *ethclient.Client
	transmitter *Transmitter
	auth        *bind.TransactOpts
	signer      common.Address

	nextNonce uint64
}

func newDestClient(ctx context.Context, rpcURL, transmitterAddress, privateKeyHex string) (*destClient, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("submitter: connect to destination RPC: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("submitter: parse relayer private key: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("submitter: get destination chain id: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("submitter: create transactor: %w", err)
	}

	transmitter, err := NewTransmitter(common.HexToAddress(transmitterAddress), eth)
	if err != nil {
		return nil, fmt.Errorf("submitter: bind transmitter contract: %w", err)
	}

	signer := crypto.PubkeyToAddress(privateKey.PublicKey)
	nonce, err := eth.PendingNonceAt(ctx, signer)
	if err != nil {
		return nil, fmt.Errorf("submitter: fetch initial nonce: %w", err)
	}

	return &destClient{
		eth:         eth,
		transmitter: transmitter,
		auth:        auth,
		signer:      signer,
		nextNonce:   nonce,
	}, nil
}

// resyncNonce re-reads the pending nonce from the chain. Called before the
// restart-recovery sweep (when there are jobs to recover) and after every
// non-terminal submission failure, since this relay has no in-flight
// concurrent transactions to reconcile against.
func (c *destClient) resyncNonce(ctx context.Context) error {
	nonce, err := c.eth.PendingNonceAt(ctx, c.signer)
	if err != nil {
		return fmt.Errorf("submitter: resync nonce: %w", err)
	}
	c.nextNonce = nonce
	return nil
}

// estimateReceiveAndForward dry-runs receiveAndForward via eth_estimateGas.
// A revert here surfaces terminal contract-layer rejections before any fee
// is spent broadcasting a doomed transaction.
func (c *destClient) estimateReceiveAndForward(ctx context.Context, message, attestation []byte, relayFee *big.Int) (uint64, error) {
	data, err := c.transmitter.parsedABI.Pack("receiveAndForward", message, attestation, relayFee)
	if err != nil {
		return 0, fmt.Errorf("submitter: pack receiveAndForward call data: %w", err)
	}
	to := c.transmitter.Address()
	return c.eth.EstimateGas(ctx, ethereumCallMsg(c.signer, &to, data))
}
