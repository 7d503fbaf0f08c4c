// Package simulation runs offline what-if scenarios: it builds an exchange
// context from declared protocol parameters and market state instead of
// chain accounts, then prices a batch of quote requests against it. Used to
// explore fee and ceiling behavior around the stability thresholds without
// touching a cluster.
package simulation

import (
	"fmt"

	"solana-exchange-core/internal/collateral"
	"solana-exchange-core/internal/config"
	"solana-exchange-core/internal/exchange"
	"solana-exchange-core/internal/fixed"
	"solana-exchange-core/internal/oracle"
	"solana-exchange-core/internal/quote"
	"solana-exchange-core/internal/solana"
)

// Scenario is one offline run: protocol parameters, a market state, and the
// quote requests to price against it.
type Scenario struct {
	Protocol config.Protocol `yaml:"protocol"`
	Market   Market          `yaml:"market"`
	Requests []Request       `yaml:"requests"`
}

// Market is the declared chain state. Amounts are decimal strings: SOL and
// LST quantities carry up to 9 fractional digits, token supplies 6, prices 8.
type Market struct {
	Epoch            uint64  `yaml:"epoch"`
	CollateralSOL    string  `yaml:"collateral_sol"`
	CollateralEpoch  uint64  `yaml:"collateral_epoch"`
	StablecoinSupply string  `yaml:"stablecoin_supply"`
	LevercoinSupply  *string `yaml:"levercoin_supply"`
	SOLPrice         string  `yaml:"sol_price"`
	SOLPriceConf     string  `yaml:"sol_price_conf"`
	PriceAgeSecs     int64   `yaml:"price_age_secs"`
	Pool             Pool    `yaml:"pool"`
	LSTs             []LST   `yaml:"lsts"`
}

// Pool is the stability pool state.
type Pool struct {
	ShareSupply string `yaml:"share_supply"`
	Stablecoin  string `yaml:"stablecoin"`
	Levercoin   string `yaml:"levercoin"`
}

// LST declares one liquid staking token by name with its epoch-tagged SOL
// rate.
type LST struct {
	Name      string `yaml:"name"`
	SOLPerLST string `yaml:"sol_per_lst"`
	Epoch     uint64 `yaml:"epoch"`
}

// Request prices one operation. LST names reference the market's LST list;
// the amount is a decimal string in the operation's input token.
type Request struct {
	Operation string `yaml:"operation"`
	LST       string `yaml:"lst"`
	Amount    string `yaml:"amount"`
}

type scenarioClock struct {
	epoch uint64
	now   int64
}

func (c scenarioClock) Epoch() uint64   { return c.epoch }
func (c scenarioClock) UnixTime() int64 { return c.now }

// namedMint derives a stable placeholder pubkey from a token name so quote
// fee mints are distinguishable offline.
func namedMint(name string) solana.Pubkey {
	var pk solana.Pubkey
	copy(pk[:], name)
	return pk
}

// loadContext builds the exchange context from the declared state at the
// given wall-clock time.
func (s *Scenario) loadContext(now int64) (*exchange.Context, error) {
	controller, err := s.Protocol.Controller()
	if err != nil {
		return nil, err
	}
	oracleCfg, err := s.Protocol.OracleConfig()
	if err != nil {
		return nil, err
	}
	stablecoinFees, err := s.Protocol.StablecoinFees()
	if err != nil {
		return nil, err
	}
	levercoinFees, err := s.Protocol.LevercoinFees()
	if err != nil {
		return nil, err
	}

	collateralSOL, err := fixed.Parse[fixed.N9](s.Market.CollateralSOL)
	if err != nil {
		return nil, fmt.Errorf("market.collateral_sol: %w", err)
	}
	stablecoinSupply, err := fixed.Parse[fixed.N6](s.Market.StablecoinSupply)
	if err != nil {
		return nil, fmt.Errorf("market.stablecoin_supply: %w", err)
	}
	var levercoinSupply *uint64
	if s.Market.LevercoinSupply != nil {
		parsed, err := fixed.Parse[fixed.N6](*s.Market.LevercoinSupply)
		if err != nil {
			return nil, fmt.Errorf("market.levercoin_supply: %w", err)
		}
		levercoinSupply = &parsed.Bits
	}

	update, err := s.priceUpdate(now)
	if err != nil {
		return nil, err
	}

	return exchange.Load(
		scenarioClock{epoch: s.Market.Epoch, now: now},
		collateral.NewCache(collateralSOL.Bits, s.Market.CollateralEpoch),
		controller,
		oracleCfg,
		stablecoinFees,
		levercoinFees,
		update,
		stablecoinSupply.Bits,
		levercoinSupply,
	)
}

// priceUpdate synthesizes an oracle update at 8 fractional digits from the
// declared price and confidence.
func (s *Scenario) priceUpdate(now int64) (oracle.PriceUpdate, error) {
	price, err := fixed.Parse[fixed.N8](s.Market.SOLPrice)
	if err != nil {
		return oracle.PriceUpdate{}, fmt.Errorf("market.sol_price: %w", err)
	}
	conf := fixed.Zero[fixed.N8]()
	if s.Market.SOLPriceConf != "" {
		conf, err = fixed.Parse[fixed.N8](s.Market.SOLPriceConf)
		if err != nil {
			return oracle.PriceUpdate{}, fmt.Errorf("market.sol_price_conf: %w", err)
		}
	}
	return oracle.PriceUpdate{
		Price:       int64(price.Bits),
		Conf:        conf.Bits,
		Exponent:    -8,
		PublishTime: now - s.Market.PriceAgeSecs,
	}, nil
}

// poolState parses the stability pool section.
func (s *Scenario) poolState() (quote.PoolState, error) {
	parseN6 := func(field, raw string) (fixed.UFix[fixed.N6], error) {
		if raw == "" {
			return fixed.Zero[fixed.N6](), nil
		}
		v, err := fixed.Parse[fixed.N6](raw)
		if err != nil {
			return fixed.UFix[fixed.N6]{}, fmt.Errorf("market.pool.%s: %w", field, err)
		}
		return v, nil
	}

	var pool quote.PoolState
	var err error
	if pool.ShareSupply, err = parseN6("share_supply", s.Market.Pool.ShareSupply); err != nil {
		return quote.PoolState{}, err
	}
	if pool.StablecoinInPool, err = parseN6("stablecoin", s.Market.Pool.Stablecoin); err != nil {
		return quote.PoolState{}, err
	}
	if pool.LevercoinInPool, err = parseN6("levercoin", s.Market.Pool.Levercoin); err != nil {
		return quote.PoolState{}, err
	}
	if pool.WithdrawalFee, err = s.Protocol.WithdrawalFee(); err != nil {
		return quote.PoolState{}, err
	}
	return pool, nil
}

// lstInfo resolves an LST request name to quote info.
func (s *Scenario) lstInfo(name string) (quote.LSTInfo, error) {
	for _, lst := range s.Market.LSTs {
		if lst.Name != name {
			continue
		}
		rate, err := fixed.Parse[fixed.N9](lst.SOLPerLST)
		if err != nil {
			return quote.LSTInfo{}, fmt.Errorf("market.lsts[%s].sol_per_lst: %w", name, err)
		}
		return quote.LSTInfo{
			Mint:  namedMint(name),
			Price: exchange.LSTPrice{SOLPerLST: rate, Epoch: lst.Epoch},
		}, nil
	}
	return quote.LSTInfo{}, fmt.Errorf("simulation: lst %q not declared in market", name)
}
