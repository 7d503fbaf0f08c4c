package exchange

import "errors"

// Exchange-level failures. Every fallible sub-step returns its specific
// kind; the orchestrator propagates the first failure without reinterpreting
// it.
var (
	// ErrMissingLevercoinSupply is returned by levercoin operations when no
	// levercoin mint is configured in the context.
	ErrMissingLevercoinSupply = errors.New("exchange: levercoin mint not configured")

	// ErrExceedsMaxMintable is returned when a requested stablecoin amount
	// would push the collateral ratio below the minimum threshold.
	ErrExceedsMaxMintable = errors.New("exchange: requested stablecoin over max mintable")

	// ErrExceedsMaxSwappable is returned when a levercoin-to-stablecoin swap
	// would mint more stablecoin than the threshold allows.
	ErrExceedsMaxSwappable = errors.New("exchange: requested stablecoin over max swappable")

	// ErrFeeNotConfigured is returned when the fee schedule has no rate for
	// the selected stability mode. Operations disabled in a mode have no
	// rate on purpose.
	ErrFeeNotConfigured = errors.New("exchange: no fee rate configured for stability mode")

	// ErrStaleLSTPrice is returned when an LST/SOL price from a previous
	// epoch is used.
	ErrStaleLSTPrice = errors.New("exchange: lst price is from a different epoch")
)
