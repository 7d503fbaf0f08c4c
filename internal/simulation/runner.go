package simulation

import (
	"errors"
	"fmt"
	"time"

	"solana-exchange-core/internal/domain"
	"solana-exchange-core/internal/exchange"
	"solana-exchange-core/internal/fixed"
	"solana-exchange-core/internal/quote"
)

// ErrUnknownOperation is returned for a request operation outside the nine
// supported pairs.
var ErrUnknownOperation = errors.New("simulation: unknown operation")

// Result is the outcome of one priced request. A request that the protocol
// rejects carries the rejection in Err; the run continues.
type Result struct {
	Operation       string  `json:"operation"`
	LST             string  `json:"lst,omitempty"`
	InAmount        uint64  `json:"in_amount"`
	OutAmount       uint64  `json:"out_amount"`
	FeeAmount       uint64  `json:"fee_amount"`
	FeeToken        string  `json:"fee_token,omitempty"`
	FeePct          string  `json:"fee_pct,omitempty"`
	StabilityMode   string  `json:"stability_mode"`
	CollateralRatio float64 `json:"collateral_ratio"`
	Err             string  `json:"error,omitempty"`
}

// Runner prices scenario requests.
type Runner struct {
	now func() int64
}

// NewRunner creates a runner using the wall clock.
func NewRunner() *Runner {
	return &Runner{now: func() int64 { return time.Now().Unix() }}
}

// Run builds the scenario's exchange context and prices every request
// against it. Scenario-level problems (unparseable state, invalid oracle
// data) fail the run; per-request rejections land in the result.
func (r *Runner) Run(scenario *Scenario) ([]Result, error) {
	ctx, err := scenario.loadContext(r.now())
	if err != nil {
		return nil, err
	}
	pool, err := scenario.poolState()
	if err != nil {
		return nil, err
	}

	mode := ctx.StabilityMode().String()
	ratio := ctx.CollateralRatio().Float64()

	results := make([]Result, 0, len(scenario.Requests))
	for _, req := range scenario.Requests {
		result := Result{
			Operation:       req.Operation,
			LST:             req.LST,
			StabilityMode:   mode,
			CollateralRatio: ratio,
		}

		q, feeToken, err := r.price(ctx, scenario, pool, req)
		if err != nil {
			result.Err = err.Error()
			results = append(results, result)
			continue
		}

		result.InAmount = q.InAmount
		result.OutAmount = q.OutAmount
		result.FeeAmount = q.FeeAmount
		result.FeeToken = feeToken
		result.FeePct = q.FeePct.String()
		results = append(results, result)
	}
	return results, nil
}

// price dispatches one request to its quote function. LST-denominated inputs
// parse at 9 fractional digits, token inputs at 6.
func (r *Runner) price(ctx *exchange.Context, scenario *Scenario, pool quote.PoolState, req Request) (quote.Quote, string, error) {
	stablecoinMint := namedMint("stablecoin")

	lstIn := func() (quote.LSTInfo, fixed.UFix[fixed.N9], error) {
		lst, err := scenario.lstInfo(req.LST)
		if err != nil {
			return quote.LSTInfo{}, fixed.UFix[fixed.N9]{}, err
		}
		amount, err := fixed.Parse[fixed.N9](req.Amount)
		if err != nil {
			return quote.LSTInfo{}, fixed.UFix[fixed.N9]{}, fmt.Errorf("amount: %w", err)
		}
		return lst, amount, nil
	}
	tokenIn := func() (fixed.UFix[fixed.N6], error) {
		amount, err := fixed.Parse[fixed.N6](req.Amount)
		if err != nil {
			return fixed.UFix[fixed.N6]{}, fmt.Errorf("amount: %w", err)
		}
		return amount, nil
	}

	switch req.Operation {
	case domain.OpStablecoinMint:
		lst, amount, err := lstIn()
		if err != nil {
			return quote.Quote{}, "", err
		}
		q, err := quote.StablecoinMint(ctx, lst, amount)
		return q, req.LST, err
	case domain.OpStablecoinRedeem:
		lst, err := scenario.lstInfo(req.LST)
		if err != nil {
			return quote.Quote{}, "", err
		}
		amount, err := tokenIn()
		if err != nil {
			return quote.Quote{}, "", err
		}
		q, err := quote.StablecoinRedeem(ctx, lst, amount)
		return q, req.LST, err
	case domain.OpLevercoinMint:
		lst, amount, err := lstIn()
		if err != nil {
			return quote.Quote{}, "", err
		}
		q, err := quote.LevercoinMint(ctx, lst, amount)
		return q, req.LST, err
	case domain.OpLevercoinRedeem:
		lst, err := scenario.lstInfo(req.LST)
		if err != nil {
			return quote.Quote{}, "", err
		}
		amount, err := tokenIn()
		if err != nil {
			return quote.Quote{}, "", err
		}
		q, err := quote.LevercoinRedeem(ctx, lst, amount)
		return q, req.LST, err
	case domain.OpStableToLeverSwap:
		amount, err := tokenIn()
		if err != nil {
			return quote.Quote{}, "", err
		}
		q, err := quote.StableToLeverSwap(ctx, stablecoinMint, amount)
		return q, "stablecoin", err
	case domain.OpLeverToStableSwap:
		amount, err := tokenIn()
		if err != nil {
			return quote.Quote{}, "", err
		}
		q, err := quote.LeverToStableSwap(ctx, stablecoinMint, amount)
		return q, "stablecoin", err
	case domain.OpPoolShareMint:
		amount, err := tokenIn()
		if err != nil {
			return quote.Quote{}, "", err
		}
		q, err := quote.PoolShareMint(ctx, stablecoinMint, pool, amount)
		return q, "stablecoin", err
	case domain.OpPoolShareRedeem:
		amount, err := tokenIn()
		if err != nil {
			return quote.Quote{}, "", err
		}
		q, err := quote.PoolShareRedeem(stablecoinMint, pool, amount)
		return q, "stablecoin", err
	case domain.OpPoolShareRedeemLST:
		lst, err := scenario.lstInfo(req.LST)
		if err != nil {
			return quote.Quote{}, "", err
		}
		amount, err := tokenIn()
		if err != nil {
			return quote.Quote{}, "", err
		}
		q, err := quote.PoolShareRedeemLST(ctx, lst, pool, amount)
		return q, req.LST, err
	}
	return quote.Quote{}, "", fmt.Errorf("%w: %q", ErrUnknownOperation, req.Operation)
}
