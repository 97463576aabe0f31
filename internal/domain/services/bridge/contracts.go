package bridge

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// ABI signatures submitted through the custody executor.
const (
	approveSignature        = "approve(address,uint256)"
	depositForBurnSignature = "depositForBurn(uint256,uint32,bytes32,address,bytes32,uint256,uint32)"
	receiveMessageSignature = "receiveMessage(bytes,bytes)"
)

// zeroBytes32 as destinationCaller lets any account submit the mint.
var zeroBytes32 = common.Hash{}.Hex()

// PadAddress left-pads a 20-byte address to the 32-byte mintRecipient encoding.
func PadAddress(address string) string {
	return common.BytesToHash(common.HexToAddress(address).Bytes()).Hex()
}

func approveParams(spender string, amount *big.Int) []interface{} {
	return []interface{}{spender, amount.String()}
}

func depositForBurnParams(amount *big.Int, destDomain uint32, mintRecipient, burnToken, maxFee string, minFinality uint32) []interface{} {
	return []interface{}{
		amount.String(),
		strconv.FormatUint(uint64(destDomain), 10),
		PadAddress(mintRecipient),
		burnToken,
		zeroBytes32,
		maxFee,
		strconv.FormatUint(uint64(minFinality), 10),
	}
}

func receiveMessageParams(message, attestation string) []interface{} {
	return []interface{}{message, attestation}
}
