package models

import "strings"

// Coin is a supported base asset, always quoted in USDT.
type Coin struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Pair   string `json:"pair"`
}

const QuoteAsset = "USDT"

func newCoin(symbol, name string) Coin {
	return Coin{Symbol: symbol, Name: name, Pair: symbol + "/" + QuoteAsset}
}

// SupportedCoins is the coin catalog in display order.
var SupportedCoins = []Coin{
	newCoin("BTC", "Bitcoin"),
	newCoin("ETH", "Ethereum"),
	newCoin("BNB", "Binance Coin"),
	newCoin("SOL", "Solana"),
	newCoin("XRP", "Ripple"),
	newCoin("ADA", "Cardano"),
	newCoin("DOGE", "Dogecoin"),
	newCoin("AVAX", "Avalanche"),
	newCoin("DOT", "Polkadot"),
	newCoin("TRX", "TRON"),
	newCoin("MATIC", "Polygon"),
	newCoin("LTC", "Litecoin"),
	newCoin("LINK", "Chainlink"),
	newCoin("UNI", "Uniswap"),
	newCoin("ATOM", "Cosmos"),
	newCoin("NEAR", "NEAR Protocol"),
	newCoin("ICP", "Internet Computer"),
	newCoin("FIL", "Filecoin"),
	newCoin("APT", "Aptos"),
	newCoin("ARB", "Arbitrum"),
}

// LookupCoin finds a coin by symbol, case-insensitively.
func LookupCoin(symbol string) (Coin, bool) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, c := range SupportedCoins {
		if c.Symbol == s {
			return c, true
		}
	}
	return Coin{}, false
}

// ExchangeSymbol returns the exchange ticker for a coin, e.g. BTCUSDT.
func ExchangeSymbol(symbol string) string {
	return strings.ToUpper(symbol) + QuoteAsset
}
