package domain

// HealthPoint represents a sampled view of protocol health.
// Corresponds to health_timeseries table in ClickHouse.
type HealthPoint struct {
	TimestampMs int64 // Unix timestamp in milliseconds
	Epoch       int64 // Solana epoch at sample time

	CollateralRatio float64 // total collateral value / stablecoin liability
	TVLUSD          float64 // total value locked, USD
	SOLPriceLower   float64 // oracle confidence lower bound
	SOLPriceUpper   float64 // oracle confidence upper bound

	StablecoinSupply float64  // whole tokens
	LevercoinSupply  *float64 // whole tokens, nil before first levercoin mint

	StablecoinNAV      float64 // USD per stablecoin
	LevercoinMintNAV   float64 // USD per levercoin on the mint side
	LevercoinRedeemNAV float64 // USD per levercoin on the redeem side

	StabilityMode string // "stable" | "decay" | "depeg"
}
