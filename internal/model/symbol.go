package model

// Symbol sources.
const (
	SymbolSourceBIST    = "BIST"
	SymbolSourceBinance = "BINANCE"
)

// Symbol is a catalog entry a position may reference.
type Symbol struct {
	AssetClass AssetClass `json:"assetClass"`
	Symbol     string     `json:"symbol"`
	Name       string     `json:"name,omitempty"`
	LogoURL    string     `json:"logoUrl,omitempty"`
	Source     string     `json:"source"`
}
