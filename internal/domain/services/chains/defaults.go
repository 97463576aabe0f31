package chains

import "github.com/rail-service/hub_bridge/internal/domain/entities"

// Canonical chain keys
const (
	ArcTestnet      = "arcTestnet"
	EthereumSepolia = "ethereumSepolia"
	BaseSepolia     = "baseSepolia"
	ArbitrumSepolia = "arbitrumSepolia"
	OptimismSepolia = "optimismSepolia"
	AvalancheFuji   = "avalancheFuji"
	PolygonAmoy     = "polygonAmoy"
)

// CCTP v2 contracts, shared by every testnet except where noted.
const (
	TokenMessengerV2      = "0x8FE6B999Dc680CcFDD5Bf7EB0974218be2542DAA"
	TokenMessengerV2Fuji  = "0xeb08f243E5758508393d721db6EBbaD796440263"
	MessageTransmitterV2  = "0xE737e5cEBEEBa77EFE34D4aa090756590b1CE275"
	defaultTokenDecimals  = 6
	defaultNativeDecimals = 18
	defaultMinNativeGas   = "0"
)

// DefaultChains is the testnet topology with Arc as hub.
// Arc's USDC is the native gas token (18 decimals natively) but its ERC20 interface uses 6.
func DefaultChains() []entities.ChainConfig {
	return []entities.ChainConfig{
		{
			Key:                ArcTestnet,
			DisplayName:        "Arc Testnet",
			CustodyBlockchain:  "ARC-TESTNET",
			EVMChainID:         5042002,
			DomainID:           26,
			TokenAddress:       "0x3600000000000000000000000000000000000000",
			TokenMessenger:     TokenMessengerV2,
			MessageTransmitter: MessageTransmitterV2,
			TokenDecimals:      defaultTokenDecimals,
			NativeDecimals:     defaultNativeDecimals,
			NativeSymbol:       "USDC",
			MinNativeGas:       defaultMinNativeGas,
			RPCURLs:            []string{"https://rpc.testnet.arc.network"},
			ExplorerTxURL:      "https://testnet.arcscan.app/tx/%s",
			IsHub:              true,
		},
		{
			Key:                EthereumSepolia,
			DisplayName:        "Ethereum Sepolia",
			CustodyBlockchain:  "ETH-SEPOLIA",
			EVMChainID:         11155111,
			DomainID:           0,
			TokenAddress:       "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
			TokenMessenger:     TokenMessengerV2,
			MessageTransmitter: MessageTransmitterV2,
			TokenDecimals:      defaultTokenDecimals,
			NativeDecimals:     defaultNativeDecimals,
			NativeSymbol:       "ETH",
			MinNativeGas:       defaultMinNativeGas,
			RPCURLs:            []string{"https://sepolia.drpc.org"},
			ExplorerTxURL:      "https://sepolia.etherscan.io/tx/%s",
		},
		{
			Key:                BaseSepolia,
			DisplayName:        "Base Sepolia",
			CustodyBlockchain:  "BASE-SEPOLIA",
			EVMChainID:         84532,
			DomainID:           6,
			TokenAddress:       "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
			TokenMessenger:     TokenMessengerV2,
			MessageTransmitter: MessageTransmitterV2,
			TokenDecimals:      defaultTokenDecimals,
			NativeDecimals:     defaultNativeDecimals,
			NativeSymbol:       "ETH",
			MinNativeGas:       defaultMinNativeGas,
			RPCURLs:            []string{"https://sepolia.base.org"},
			ExplorerTxURL:      "https://sepolia.basescan.org/tx/%s",
		},
		{
			Key:                ArbitrumSepolia,
			DisplayName:        "Arbitrum Sepolia",
			CustodyBlockchain:  "ARB-SEPOLIA",
			EVMChainID:         421614,
			DomainID:           3,
			TokenAddress:       "0x75faf114eafb1BDbe2F0316DF893fd58CE46AA4d",
			TokenMessenger:     TokenMessengerV2,
			MessageTransmitter: MessageTransmitterV2,
			TokenDecimals:      defaultTokenDecimals,
			NativeDecimals:     defaultNativeDecimals,
			NativeSymbol:       "ETH",
			MinNativeGas:       defaultMinNativeGas,
			RPCURLs:            []string{"https://sepolia-rollup.arbitrum.io/rpc"},
			ExplorerTxURL:      "https://sepolia.arbiscan.io/tx/%s",
		},
		{
			Key:                OptimismSepolia,
			DisplayName:        "Optimism Sepolia",
			CustodyBlockchain:  "OP-SEPOLIA",
			EVMChainID:         11155420,
			DomainID:           2,
			TokenAddress:       "0x5fd84259d66Cd46123540766Be93DFE6D43130D7",
			TokenMessenger:     TokenMessengerV2,
			MessageTransmitter: MessageTransmitterV2,
			TokenDecimals:      defaultTokenDecimals,
			NativeDecimals:     defaultNativeDecimals,
			NativeSymbol:       "ETH",
			MinNativeGas:       defaultMinNativeGas,
			RPCURLs:            []string{"https://sepolia.optimism.io"},
			ExplorerTxURL:      "https://sepolia-optimism.etherscan.io/tx/%s",
		},
		{
			Key:                AvalancheFuji,
			DisplayName:        "Avalanche Fuji",
			CustodyBlockchain:  "AVAX-FUJI",
			EVMChainID:         43113,
			DomainID:           1,
			TokenAddress:       "0x5425890298aed601595a70AB815c96711a31Bc65",
			TokenMessenger:     TokenMessengerV2Fuji,
			MessageTransmitter: MessageTransmitterV2,
			TokenDecimals:      defaultTokenDecimals,
			NativeDecimals:     defaultNativeDecimals,
			NativeSymbol:       "AVAX",
			MinNativeGas:       defaultMinNativeGas,
			RPCURLs:            []string{"https://api.avax-test.network/ext/bc/C/rpc"},
			ExplorerTxURL:      "https://testnet.snowtrace.io/tx/%s",
		},
		{
			Key:                PolygonAmoy,
			DisplayName:        "Polygon Amoy",
			CustodyBlockchain:  "MATIC-AMOY",
			EVMChainID:         80002,
			DomainID:           7,
			TokenAddress:       "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582",
			TokenMessenger:     TokenMessengerV2,
			MessageTransmitter: MessageTransmitterV2,
			TokenDecimals:      defaultTokenDecimals,
			NativeDecimals:     defaultNativeDecimals,
			NativeSymbol:       "POL",
			MinNativeGas:       defaultMinNativeGas,
			RPCURLs:            []string{"https://rpc-amoy.polygon.technology"},
			ExplorerTxURL:      "https://amoy.polygonscan.com/tx/%s",
		},
	}
}
