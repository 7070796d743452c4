// Package validate parses the packed-binary attested message and enforces
// destination-binding policy before a job is allowed to advance to
// submission. It is a pure function package: no I/O, no shared state,
// deterministic on identical input.
package validate

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	minMessageLength = 248

	offsetDestinationDomain = 8
	offsetNonce             = 12
	offsetDestinationCaller = 108
	offsetMintRecipient     = 184
	offsetAmount            = 216

	lenDestinationDomain = 4
	lenNonce             = 32
	lenDestinationCaller = 32
	lenMintRecipient     = 32
	lenAmount            = 32
)

// Result is the subset of the attested message the caller persists onto the
// job once validation succeeds.
type Result struct {
	Nonce                   string
	MintRecipient           string
	DestinationDomain       uint32
	Amount                  string // decimal string
	DestinationCallerIsZero bool
}

// Message validates a raw attested payload against the local router's
// binding policy. localDomain is this relay's destination domain identifier
// (0 in the external protocol); routerAddress is the local router's
// contract address bound into destinationCaller and mintRecipient.
func Message(raw []byte, localDomain uint32, routerAddress common.Address) (Result, error) {
	if len(raw) < minMessageLength {
		return Result{}, fmt.Errorf("message too short")
	}

	destDomain := beUint32(raw[offsetDestinationDomain : offsetDestinationDomain+lenDestinationDomain])
	if destDomain != localDomain {
		return Result{}, fmt.Errorf("destination domain %d != %d", destDomain, localDomain)
	}

	nonce := raw[offsetNonce : offsetNonce+lenNonce]

	destCallerField := raw[offsetDestinationCaller : offsetDestinationCaller+lenDestinationCaller]
	destCallerIsZero := isZero(destCallerField)
	if !destCallerIsZero {
		if !isZero(destCallerField[:12]) {
			return Result{}, fmt.Errorf("destinationCaller upper bytes are not zero-padded")
		}
		destCaller := addressFromBytes32(destCallerField)
		if !strings.EqualFold(destCaller.Hex(), routerAddress.Hex()) {
			return Result{}, fmt.Errorf("destinationCaller %s != router or zero", destCaller.Hex())
		}
	}

	mintRecipient := addressFromBytes32(raw[offsetMintRecipient : offsetMintRecipient+lenMintRecipient])
	if !strings.EqualFold(mintRecipient.Hex(), routerAddress.Hex()) {
		return Result{}, fmt.Errorf("mintRecipient %s != router %s", mintRecipient.Hex(), routerAddress.Hex())
	}

	amount := new(big.Int).SetBytes(raw[offsetAmount : offsetAmount+lenAmount])

	return Result{
		Nonce:                   "0x" + fmt.Sprintf("%x", nonce),
		MintRecipient:           mintRecipient.Hex(),
		DestinationDomain:       destDomain,
		Amount:                  amount.String(),
		DestinationCallerIsZero: destCallerIsZero,
	}, nil
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// addressFromBytes32 derives an Ethereum address from the low 20 bytes of a
// 32-byte field, as used throughout the attested message layout.
func addressFromBytes32(b []byte) common.Address {
	var addr common.Address
	copy(addr[:], b[len(b)-20:])
	return addr
}
