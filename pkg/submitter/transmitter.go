package submitter

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TransmitterABI is the ABI of the destination Transmitter contract. Only the
// call this relay makes and the events it needs to discriminate are declared
// — the contract itself is fixed and consumed as-is, never reimplemented.
const TransmitterABI = `[
	{
		"inputs": [
			{"internalType": "bytes", "name": "message", "type": "bytes"},
			{"internalType": "bytes", "name": "attestation", "type": "bytes"},
			{"internalType": "uint256", "name": "relayFee", "type": "uint256"}
		],
		"name": "receiveAndForward",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "internalType": "uint32", "name": "sourceDomain", "type": "uint32"},
			{"indexed": false, "internalType": "bytes32", "name": "sourceSender", "type": "bytes32"},
			{"indexed": false, "internalType": "bytes32", "name": "nonce", "type": "bytes32"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "relayFee", "type": "uint256"}
		],
		"name": "Relayed",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "internalType": "address", "name": "fallbackRecipient", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "relayFee", "type": "uint256"}
		],
		"name": "FallbackTriggered",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "internalType": "bytes32", "name": "nonce", "type": "bytes32"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "RecoveredFromConsumedNonce",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "internalType": "bytes32", "name": "transferId", "type": "bytes32"},
			{"indexed": false, "internalType": "bytes32", "name": "nonce", "type": "bytes32"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
			{"indexed": false, "internalType": "string", "name": "reason", "type": "string"}
		],
		"name": "OperatorRouted",
		"type": "event"
	}
]`

// Event signature hashes, computed once, matched literally against
// log.Topics[0] per the destination's discriminant convention.
var (
	topicRelayed                    = crypto.Keccak256Hash([]byte("Relayed(uint32,bytes32,bytes32,uint256,uint256)"))
	topicFallbackTriggered          = crypto.Keccak256Hash([]byte("FallbackTriggered(address,uint256,uint256)"))
	topicRecoveredFromConsumedNonce = crypto.Keccak256Hash([]byte("RecoveredFromConsumedNonce(bytes32,uint256)"))
	topicOperatorRouted             = crypto.Keccak256Hash([]byte("OperatorRouted(bytes32,bytes32,uint256,string)"))
)

// Transmitter is a minimal binding to the destination contract: this relay
// only ever calls receiveAndForward and reads back event logs by topic, so
// there is no read-only caller or log filterer/iterator surface to generate.
type Transmitter struct {
	address   common.Address
	contract  *bind.BoundContract
	parsedABI abi.ABI
}

// NewTransmitter binds Transmitter to a deployed contract address.
func NewTransmitter(address common.Address, backend bind.ContractBackend) (*Transmitter, error) {
	parsed, err := abi.JSON(strings.NewReader(TransmitterABI))
	if err != nil {
		return nil, err
	}
	return &Transmitter{
		address:   address,
		contract:  bind.NewBoundContract(address, parsed, backend, backend, backend),
		parsedABI: parsed,
	}, nil
}

// ReceiveAndForward is a paid mutator transaction binding the contract method
// receiveAndForward(bytes,bytes,uint256).
func (t *Transmitter) ReceiveAndForward(opts *bind.TransactOpts, message, attestation []byte, relayFee *big.Int) (*types.Transaction, error) {
	return t.contract.Transact(opts, "receiveAndForward", message, attestation, relayFee)
}

// Address returns the bound contract address.
func (t *Transmitter) Address() common.Address {
	return t.address
}
