package domain

// QuoteRecord represents one served quote with full pricing details.
// Corresponds to quote_history table in PostgreSQL.
type QuoteRecord struct {
	QuoteID     string // deterministic hash
	TimestampMs int64  // Unix timestamp in milliseconds
	Epoch       int64  // Solana epoch the quote was priced in

	Operation  string // operation code, see Op* constants
	InputMint  string // base58 input mint
	OutputMint string // base58 output mint

	InAmount  int64  // input token base units
	OutAmount int64  // output token base units
	FeeAmount int64  // fee token base units
	FeeMint   string // base58 mint the fee is taken in
	FeePct    string // fee fraction as a decimal string

	StabilityMode   string  // mode the quote was priced under
	CollateralRatio float64 // collateral ratio at quote time
}

// Operation codes for the nine supported pairs.
const (
	OpStablecoinMint     = "STABLECOIN_MINT"
	OpStablecoinRedeem   = "STABLECOIN_REDEEM"
	OpLevercoinMint      = "LEVERCOIN_MINT"
	OpLevercoinRedeem    = "LEVERCOIN_REDEEM"
	OpStableToLeverSwap  = "STABLE_TO_LEVER_SWAP"
	OpLeverToStableSwap  = "LEVER_TO_STABLE_SWAP"
	OpPoolShareMint      = "POOL_SHARE_MINT"
	OpPoolShareRedeem    = "POOL_SHARE_REDEEM"
	OpPoolShareRedeemLST = "POOL_SHARE_REDEEM_LST"
)
