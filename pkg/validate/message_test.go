package validate

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var router = common.HexToAddress("0x1234567890123456789012345678901234567890")

// buildMessage constructs a zero-filled message of the given length with the
// given destination domain, destinationCaller and mintRecipient
// bytes32 fields and amount.
func buildMessage(t *testing.T, length int, destDomain uint32, destCaller, mintRecipient [32]byte, amount *big.Int) []byte {
	t.Helper()
	buf := make([]byte, length)
	buf[offsetDestinationDomain] = byte(destDomain >> 24)
	buf[offsetDestinationDomain+1] = byte(destDomain >> 16)
	buf[offsetDestinationDomain+2] = byte(destDomain >> 8)
	buf[offsetDestinationDomain+3] = byte(destDomain)
	copy(buf[offsetDestinationCaller:offsetDestinationCaller+32], destCaller[:])
	copy(buf[offsetMintRecipient:offsetMintRecipient+32], mintRecipient[:])
	if amount != nil {
		amtBytes := amount.Bytes()
		copy(buf[offsetAmount+32-len(amtBytes):offsetAmount+32], amtBytes)
	}
	return buf
}

func bytes32FromAddress(addr common.Address) [32]byte {
	var b [32]byte
	copy(b[12:], addr.Bytes())
	return b
}

func TestMessageTooShort(t *testing.T) {
	_, err := Message(make([]byte, minMessageLength-1), 0, router)
	require.Error(t, err)
	assert.Equal(t, "message too short", err.Error())
}

func TestMessageMinimumAcceptedLength(t *testing.T) {
	msg := buildMessage(t, minMessageLength, 0, [32]byte{}, bytes32FromAddress(router), big.NewInt(1000))
	res, err := Message(msg, 0, router)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), res.DestinationDomain)
	assert.Equal(t, "1000", res.Amount)
}

func TestDestinationDomainMismatch(t *testing.T) {
	msg := buildMessage(t, minMessageLength, 7, [32]byte{}, bytes32FromAddress(router), big.NewInt(1))
	_, err := Message(msg, 0, router)
	require.Error(t, err)
	assert.Equal(t, "destination domain 7 != 0", err.Error())
}

func TestDestinationCallerZeroAccepted(t *testing.T) {
	msg := buildMessage(t, minMessageLength, 0, [32]byte{}, bytes32FromAddress(router), big.NewInt(1))
	res, err := Message(msg, 0, router)
	require.NoError(t, err)
	assert.True(t, res.DestinationCallerIsZero)
}

func TestDestinationCallerRouterAccepted(t *testing.T) {
	msg := buildMessage(t, minMessageLength, 0, bytes32FromAddress(router), bytes32FromAddress(router), big.NewInt(1))
	res, err := Message(msg, 0, router)
	require.NoError(t, err)
	assert.False(t, res.DestinationCallerIsZero)
}

func TestDestinationCallerWrongAddressRejected(t *testing.T) {
	other := common.HexToAddress("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	msg := buildMessage(t, minMessageLength, 0, bytes32FromAddress(other), bytes32FromAddress(router), big.NewInt(1))
	_, err := Message(msg, 0, router)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "!= router or zero")
}

func TestDestinationCallerNonZeroPaddingRejected(t *testing.T) {
	garbage := bytes32FromAddress(router)
	garbage[0] = 0xff // upper bytes must be zero even when the low 20 bytes match the router
	msg := buildMessage(t, minMessageLength, 0, garbage, bytes32FromAddress(router), big.NewInt(1))
	_, err := Message(msg, 0, router)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not zero-padded")
}

func TestMintRecipientMismatchRejected(t *testing.T) {
	other := common.HexToAddress("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	msg := buildMessage(t, minMessageLength, 0, [32]byte{}, bytes32FromAddress(other), big.NewInt(1))
	_, err := Message(msg, 0, router)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "!= router")
}

func TestPureFunctionDeterministic(t *testing.T) {
	msg := buildMessage(t, minMessageLength, 0, [32]byte{}, bytes32FromAddress(router), big.NewInt(42))
	a, err := Message(msg, 0, router)
	require.NoError(t, err)
	b, err := Message(msg, 0, router)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
