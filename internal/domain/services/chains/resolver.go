package chains

import "strings"

// aliases is the closed table of accepted chain names. Keys are normalized.
var aliases = map[string]string{
	"arc":        ArcTestnet,
	"arctestnet": ArcTestnet,
	"hub":        ArcTestnet,

	"eth":             EthereumSepolia,
	"ethereum":        EthereumSepolia,
	"sepolia":         EthereumSepolia,
	"ethereumsepolia": EthereumSepolia,
	"ethsepolia":      EthereumSepolia,

	"base":        BaseSepolia,
	"basesepolia": BaseSepolia,

	"arb":             ArbitrumSepolia,
	"arbitrum":        ArbitrumSepolia,
	"arbitrumsepolia": ArbitrumSepolia,
	"arbsepolia":      ArbitrumSepolia,

	"op":              OptimismSepolia,
	"opt":             OptimismSepolia,
	"optimism":        OptimismSepolia,
	"optimismsepolia": OptimismSepolia,
	"opsepolia":       OptimismSepolia,

	"avax":          AvalancheFuji,
	"avalanche":     AvalancheFuji,
	"avalanchefuji": AvalancheFuji,
	"fuji":          AvalancheFuji,
	"avaxfuji":      AvalancheFuji,

	"poly":        PolygonAmoy,
	"polygon":     PolygonAmoy,
	"polygonamoy": PolygonAmoy,
	"amoy":        PolygonAmoy,
	"matic":       PolygonAmoy,
	"maticamoy":   PolygonAmoy,
}

// normalize lower-cases and strips whitespace, hyphens and underscores.
func normalize(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range strings.ToLower(input) {
		switch r {
		case ' ', '\t', '\n', '\r', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ResolveChainKey maps a free-form chain name to its canonical key.
// Unknown input returns ok=false; there is no fallback chain.
func ResolveChainKey(input string) (key string, ok bool) {
	n := normalize(input)
	if n == "" {
		return "", false
	}
	key, ok = aliases[n]
	return key, ok
}
