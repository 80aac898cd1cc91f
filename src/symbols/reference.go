package symbols

// CryptoAsset is a static reference entry for a supported crypto base asset.
type CryptoAsset struct {
	Symbol      string
	CoinGeckoID string
	Name        string
}

var cryptoAssets = []CryptoAsset{
	{"BTC", "bitcoin", "Bitcoin"},
	{"ETH", "ethereum", "Ethereum"},
	{"USDT", "tether", "Tether"},
	{"BNB", "binancecoin", "BNB"},
	{"SOL", "solana", "Solana"},
	{"XRP", "ripple", "XRP"},
	{"USDC", "usd-coin", "USD Coin"},
	{"DOGE", "dogecoin", "Dogecoin"},
	{"ADA", "cardano", "Cardano"},
	{"TRX", "tron", "TRON"},
	{"TON", "the-open-network", "Toncoin"},
	{"AVAX", "avalanche-2", "Avalanche"},
	{"SHIB", "shiba-inu", "Shiba Inu"},
	{"DOT", "polkadot", "Polkadot"},
	{"LINK", "chainlink", "Chainlink"},
	{"BCH", "bitcoin-cash", "Bitcoin Cash"},
	{"LTC", "litecoin", "Litecoin"},
	{"NEAR", "near", "NEAR Protocol"},
	{"MATIC", "matic-network", "Polygon"},
	{"UNI", "uniswap", "Uniswap"},
	{"XLM", "stellar", "Stellar"},
	{"ATOM", "cosmos", "Cosmos Hub"},
	{"ETC", "ethereum-classic", "Ethereum Classic"},
	{"XMR", "monero", "Monero"},
	{"APT", "aptos", "Aptos"},
	{"ARB", "arbitrum", "Arbitrum"},
	{"OP", "optimism", "Optimism"},
	{"FIL", "filecoin", "Filecoin"},
	{"ALGO", "algorand", "Algorand"},
	{"PEPE", "pepe", "Pepe"},
}

// forexPairs enumerates the supported six-letter ISO pairs.
var forexPairs = []string{
	"EURUSD", "GBPUSD", "USDJPY", "USDCHF", "AUDUSD", "USDCAD", "NZDUSD",
	"EURGBP", "EURJPY", "GBPJPY", "EURCHF", "AUDJPY", "EURAUD", "EURCAD",
	"GBPCHF", "CADJPY", "CHFJPY", "AUDNZD", "USDCNY", "USDHKD", "USDSGD",
	"USDSEK", "USDNOK", "USDMXN", "USDZAR", "USDINR", "USDTRY", "USDPLN",
	"USDBRL", "USDKRW",
}

var (
	cryptoBySymbol = map[string]CryptoAsset{}
	forexSet       = map[string]struct{}{}
)

func init() {
	for _, a := range cryptoAssets {
		cryptoBySymbol[a.Symbol] = a
	}
	for _, p := range forexPairs {
		forexSet[p] = struct{}{}
	}
}

// -----------------------------------------------------------------------------

// Crypto returns the reference entry for a normalized crypto symbol.
func Crypto(symbol string) (CryptoAsset, bool) {
	a, ok := cryptoBySymbol[symbol]
	return a, ok
}

// CryptoByCoinGeckoID is the reverse lookup used when decoding CoinGecko payloads.
func CryptoByCoinGeckoID(id string) (CryptoAsset, bool) {
	for _, a := range cryptoAssets {
		if a.CoinGeckoID == id {
			return a, true
		}
	}
	return CryptoAsset{}, false
}

// ForexParts splits a normalized pair into base and quote currency.
func ForexParts(pair string) (base, quote string, ok bool) {
	if _, known := forexSet[pair]; !known {
		return "", "", false
	}
	return pair[:3], pair[3:], true
}

// DisplayName returns a human name for reference-listed symbols, else "".
func DisplayName(symbol string) string {
	if a, ok := cryptoBySymbol[symbol]; ok {
		return a.Name
	}
	if base, quote, ok := ForexParts(symbol); ok {
		return base + "/" + quote
	}
	return ""
}
