package amm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquiditycore/internal/domain"
)

var (
	// maxFeeRate bounds pool creation; a fee of 1 would eat every swap.
	maxFeeRate = decimal.RequireFromString("0.1")
	// depositRatioTolerance is the allowed deviation between a deposit's
	// asset ratio and the pool's reserve ratio.
	depositRatioTolerance = decimal.RequireFromString("0.01")
	// rebalanceTolerance is the ratio deviation under which Rebalance is
	// a no-op.
	rebalanceTolerance = decimal.RequireFromString("0.001")

	daysPerYear = decimal.NewFromInt(365)
)

type feeEvent struct {
	at         time.Time
	quoteValue decimal.Decimal
}

type poolState struct {
	mu        sync.Mutex
	pool      domain.Pool
	positions map[string]*domain.ProviderPosition
	feeEvents []feeEvent

	// rebalanceMu serializes whole rebalance cycles: the ratio check and
	// the corrective swap must see the same reserves.
	rebalanceMu sync.Mutex
}

// Engine manages constant-product pools in memory. Pool state is guarded by
// a per-pool mutex; the engine lock only covers the pool index.
type Engine struct {
	transfer domain.AssetTransfer
	clock    domain.Clock
	logger   *slog.Logger

	mu        sync.RWMutex
	pools     map[string]*poolState
	pairIndex map[string]string
}

// NewEngine creates an Engine settling through the given transfer backend.
func NewEngine(transfer domain.AssetTransfer, clock domain.Clock, logger *slog.Logger) *Engine {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Engine{
		transfer:  transfer,
		clock:     clock,
		logger:    logger.With(slog.String("component", "amm")),
		pools:     make(map[string]*poolState),
		pairIndex: make(map[string]string),
	}
}

// pairKey canonicalizes an asset pair so BTC/USD and USD/BTC collide.
func pairKey(a, b string) string {
	a = strings.ToUpper(a)
	b = strings.ToUpper(b)
	if a > b {
		a, b = b, a
	}
	return a + "/" + b
}

func poolAccount(poolID string) string { return "pool:" + poolID }

// CreatePool creates a pool for the pair, funds it from the provider, and
// mints the initial shares as the geometric mean of the two deposits.
func (e *Engine) CreatePool(ctx context.Context, providerID, baseAsset, quoteAsset string, baseAmount, quoteAmount, feeRate decimal.Decimal) (domain.Pool, error) {
	switch {
	case providerID == "":
		return domain.Pool{}, domain.NewValidationError("provider_id", "must not be empty")
	case baseAsset == "" || quoteAsset == "":
		return domain.Pool{}, domain.NewValidationError("asset", "both assets must be set")
	case strings.EqualFold(baseAsset, quoteAsset):
		return domain.Pool{}, domain.NewValidationError("asset", "assets must differ")
	case baseAmount.Sign() <= 0 || quoteAmount.Sign() <= 0:
		return domain.Pool{}, domain.NewValidationError("amount", "initial deposits must be positive")
	case feeRate.Sign() < 0 || feeRate.GreaterThan(maxFeeRate):
		return domain.Pool{}, domain.NewValidationError("fee_rate", "must be between 0 and 0.1")
	}

	key := pairKey(baseAsset, quoteAsset)

	e.mu.Lock()
	if _, exists := e.pairIndex[key]; exists {
		e.mu.Unlock()
		return domain.Pool{}, fmt.Errorf("amm: create %s: %w", key, domain.ErrPoolExists)
	}
	id := uuid.NewString()
	// Reserve the pair before releasing the lock so a concurrent create
	// for the same pair fails instead of racing the funding transfers.
	e.pairIndex[key] = id
	e.mu.Unlock()

	account := poolAccount(id)
	if err := e.transfer.Transfer(ctx, providerID, account, baseAsset, baseAmount); err != nil {
		e.unindex(key)
		return domain.Pool{}, fmt.Errorf("amm: fund base: %w", err)
	}
	if err := e.transfer.Transfer(ctx, providerID, account, quoteAsset, quoteAmount); err != nil {
		if rerr := e.transfer.Transfer(ctx, account, providerID, baseAsset, baseAmount); rerr != nil {
			e.logger.Error("base refund failed after quote funding error",
				slog.String("pool_id", id),
				slog.String("error", rerr.Error()))
		}
		e.unindex(key)
		return domain.Pool{}, fmt.Errorf("amm: fund quote: %w", err)
	}

	shares := sqrt(baseAmount.Mul(quoteAmount)).RoundDown(amountScale)
	pool := domain.Pool{
		ID:           id,
		BaseAsset:    strings.ToUpper(baseAsset),
		QuoteAsset:   strings.ToUpper(quoteAsset),
		BaseReserve:  baseAmount,
		QuoteReserve: quoteAmount,
		TotalShares:  shares,
		FeeRate:      feeRate,
		IsActive:     true,
		CreatedAt:    e.clock.Now(),
	}

	state := &poolState{
		pool: pool,
		positions: map[string]*domain.ProviderPosition{
			providerID: {
				PoolID:         id,
				ProviderID:     providerID,
				ShareBalance:   shares,
				PendingRewards: make(map[string]decimal.Decimal),
			},
		},
	}

	e.mu.Lock()
	e.pools[id] = state
	e.mu.Unlock()

	e.logger.Info("pool created",
		slog.String("pool_id", id),
		slog.String("pair", key),
		slog.String("shares", shares.String()))
	return pool, nil
}

func (e *Engine) unindex(key string) {
	e.mu.Lock()
	delete(e.pairIndex, key)
	e.mu.Unlock()
}

func (e *Engine) state(poolID string) (*poolState, error) {
	e.mu.RLock()
	state, ok := e.pools[poolID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("amm: pool %s: %w", poolID, domain.ErrPoolNotFound)
	}
	return state, nil
}

// Pool returns a snapshot of the pool.
func (e *Engine) Pool(poolID string) (domain.Pool, error) {
	state, err := e.state(poolID)
	if err != nil {
		return domain.Pool{}, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.pool, nil
}

// PoolByPair returns a snapshot of the pool for the unordered asset pair.
func (e *Engine) PoolByPair(baseAsset, quoteAsset string) (domain.Pool, error) {
	e.mu.RLock()
	id, ok := e.pairIndex[pairKey(baseAsset, quoteAsset)]
	e.mu.RUnlock()
	if !ok {
		return domain.Pool{}, fmt.Errorf("amm: pair %s: %w", pairKey(baseAsset, quoteAsset), domain.ErrPoolNotFound)
	}
	return e.Pool(id)
}

// Pools returns snapshots of every pool, ordered by creation time.
func (e *Engine) Pools() []domain.Pool {
	e.mu.RLock()
	states := make([]*poolState, 0, len(e.pools))
	for _, s := range e.pools {
		states = append(states, s)
	}
	e.mu.RUnlock()

	out := make([]domain.Pool, 0, len(states))
	for _, s := range states {
		s.mu.Lock()
		out = append(out, s.pool)
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// SetActive toggles whether the pool accepts swaps and deposits.
func (e *Engine) SetActive(poolID string, active bool) error {
	state, err := e.state(poolID)
	if err != nil {
		return err
	}
	state.mu.Lock()
	state.pool.IsActive = active
	state.mu.Unlock()
	return nil
}

// Swap trades inputAmount of inputAsset against the pool. The output is
// priced by the constant-product formula with the fee kept in the input
// reserve; minOutput of zero disables the slippage guard.
func (e *Engine) Swap(ctx context.Context, accountID, poolID, inputAsset string, inputAmount, minOutput decimal.Decimal) (domain.SwapResult, error) {
	if accountID == "" {
		return domain.SwapResult{}, domain.NewValidationError("account_id", "must not be empty")
	}
	if inputAmount.Sign() <= 0 {
		return domain.SwapResult{}, domain.NewValidationError("input_amount", "must be positive")
	}

	state, err := e.state(poolID)
	if err != nil {
		return domain.SwapResult{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	pool := &state.pool

	if !pool.IsActive {
		return domain.SwapResult{}, fmt.Errorf("amm: swap %s: %w", poolID, domain.ErrPoolInactive)
	}

	inputAsset = strings.ToUpper(inputAsset)
	var outputAsset string
	var rin, rout decimal.Decimal
	switch inputAsset {
	case pool.BaseAsset:
		outputAsset = pool.QuoteAsset
		rin, rout = pool.BaseReserve, pool.QuoteReserve
	case pool.QuoteAsset:
		outputAsset = pool.BaseAsset
		rin, rout = pool.QuoteReserve, pool.BaseReserve
	default:
		return domain.SwapResult{}, domain.NewValidationError("input_asset", "not traded by this pool")
	}

	if rin.Sign() <= 0 || rout.Sign() <= 0 {
		return domain.SwapResult{}, fmt.Errorf("amm: swap %s: %w", poolID, domain.ErrInsufficientLiquidity)
	}

	quote := swapOutput(rin, rout, inputAmount, pool.FeeRate)
	if quote.Output.Sign() <= 0 || quote.Output.GreaterThanOrEqual(rout) {
		return domain.SwapResult{}, fmt.Errorf("amm: swap %s: %w", poolID, domain.ErrInsufficientLiquidity)
	}
	if minOutput.Sign() > 0 && quote.Output.LessThan(minOutput) {
		return domain.SwapResult{}, fmt.Errorf("amm: swap %s: output %s below minimum %s: %w",
			poolID, quote.Output, minOutput, domain.ErrSlippageExceeded)
	}

	account := poolAccount(poolID)
	if err := e.transfer.Transfer(ctx, accountID, account, inputAsset, inputAmount); err != nil {
		return domain.SwapResult{}, fmt.Errorf("amm: settle input: %w", err)
	}
	if err := e.transfer.Transfer(ctx, account, accountID, outputAsset, quote.Output); err != nil {
		if rerr := e.transfer.Transfer(ctx, account, accountID, inputAsset, inputAmount); rerr != nil {
			e.logger.Error("input refund failed after output settlement error",
				slog.String("pool_id", poolID),
				slog.String("error", rerr.Error()))
		}
		return domain.SwapResult{}, fmt.Errorf("amm: settle output: %w", err)
	}

	// Fee value is tracked in quote terms at the pre-swap spot price.
	feeQuoteValue := quote.Fee
	if inputAsset == pool.BaseAsset {
		feeQuoteValue = quote.Fee.Mul(pool.QuoteReserve.Div(pool.BaseReserve)).RoundDown(amountScale)
	}

	if inputAsset == pool.BaseAsset {
		pool.BaseReserve = pool.BaseReserve.Add(inputAmount)
		pool.QuoteReserve = pool.QuoteReserve.Sub(quote.Output)
	} else {
		pool.QuoteReserve = pool.QuoteReserve.Add(inputAmount)
		pool.BaseReserve = pool.BaseReserve.Sub(quote.Output)
	}
	state.feeEvents = append(state.feeEvents, feeEvent{at: e.clock.Now(), quoteValue: feeQuoteValue})

	e.logger.Info("swap executed",
		slog.String("pool_id", poolID),
		slog.String("input_asset", inputAsset),
		slog.String("input_amount", inputAmount.String()),
		slog.String("output_amount", quote.Output.String()))

	return domain.SwapResult{
		InputAsset:   inputAsset,
		InputAmount:  inputAmount,
		OutputAsset:  outputAsset,
		OutputAmount: quote.Output,
		FeeAmount:    quote.Fee,
		PriceImpact:  quote.PriceImpact,
	}, nil
}

// AddLiquidity deposits both assets at the pool's current ratio and mints
// shares proportional to the smaller contribution. Deposits more than 1%
// off the reserve ratio are rejected.
func (e *Engine) AddLiquidity(ctx context.Context, providerID, poolID string, baseAmount, quoteAmount decimal.Decimal) (decimal.Decimal, error) {
	if providerID == "" {
		return decimal.Zero, domain.NewValidationError("provider_id", "must not be empty")
	}
	if baseAmount.Sign() <= 0 || quoteAmount.Sign() <= 0 {
		return decimal.Zero, domain.NewValidationError("amount", "deposits must be positive")
	}

	state, err := e.state(poolID)
	if err != nil {
		return decimal.Zero, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	pool := &state.pool

	if !pool.IsActive {
		return decimal.Zero, fmt.Errorf("amm: add liquidity %s: %w", poolID, domain.ErrPoolInactive)
	}
	if pool.BaseReserve.Sign() <= 0 || pool.QuoteReserve.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("amm: add liquidity %s: %w", poolID, domain.ErrInsufficientLiquidity)
	}

	poolRatio := pool.BaseReserve.Div(pool.QuoteReserve)
	depositRatio := baseAmount.Div(quoteAmount)
	deviation := depositRatio.Div(poolRatio).Sub(one).Abs()
	if deviation.GreaterThan(depositRatioTolerance) {
		return decimal.Zero, domain.NewValidationError("amount", "deposit ratio deviates more than 1% from pool ratio")
	}

	baseFraction := baseAmount.Div(pool.BaseReserve)
	quoteFraction := quoteAmount.Div(pool.QuoteReserve)
	minted := pool.TotalShares.Mul(decimal.Min(baseFraction, quoteFraction)).RoundDown(amountScale)
	if minted.Sign() <= 0 {
		return decimal.Zero, domain.NewValidationError("amount", "deposit too small to mint shares")
	}

	account := poolAccount(poolID)
	if err := e.transfer.Transfer(ctx, providerID, account, pool.BaseAsset, baseAmount); err != nil {
		return decimal.Zero, fmt.Errorf("amm: deposit base: %w", err)
	}
	if err := e.transfer.Transfer(ctx, providerID, account, pool.QuoteAsset, quoteAmount); err != nil {
		if rerr := e.transfer.Transfer(ctx, account, providerID, pool.BaseAsset, baseAmount); rerr != nil {
			e.logger.Error("base refund failed after quote deposit error",
				slog.String("pool_id", poolID),
				slog.String("error", rerr.Error()))
		}
		return decimal.Zero, fmt.Errorf("amm: deposit quote: %w", err)
	}

	pool.BaseReserve = pool.BaseReserve.Add(baseAmount)
	pool.QuoteReserve = pool.QuoteReserve.Add(quoteAmount)
	pool.TotalShares = pool.TotalShares.Add(minted)

	pos, ok := state.positions[providerID]
	if !ok {
		pos = &domain.ProviderPosition{
			PoolID:         poolID,
			ProviderID:     providerID,
			PendingRewards: make(map[string]decimal.Decimal),
		}
		state.positions[providerID] = pos
	}
	pos.ShareBalance = pos.ShareBalance.Add(minted)

	return minted, nil
}

// RemoveLiquidity burns shares and withdraws the proportional slice of both
// reserves, truncated in the pool's favor.
func (e *Engine) RemoveLiquidity(ctx context.Context, providerID, poolID string, shares decimal.Decimal) (baseOut, quoteOut decimal.Decimal, err error) {
	if shares.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, domain.NewValidationError("shares", "must be positive")
	}

	state, err := e.state(poolID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	pool := &state.pool

	pos, ok := state.positions[providerID]
	if !ok {
		return decimal.Zero, decimal.Zero, fmt.Errorf("amm: remove liquidity %s: %w", poolID, domain.ErrPositionNotFound)
	}
	if pos.ShareBalance.LessThan(shares) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("amm: remove liquidity %s: %w", poolID, domain.ErrInsufficientShare)
	}

	if shares.Equal(pool.TotalShares) {
		// Full exit pays the reserves exactly so no dust outlives the shares.
		baseOut = pool.BaseReserve
		quoteOut = pool.QuoteReserve
	} else {
		fraction := shares.Div(pool.TotalShares)
		baseOut = pool.BaseReserve.Mul(fraction).RoundDown(amountScale)
		quoteOut = pool.QuoteReserve.Mul(fraction).RoundDown(amountScale)
	}

	account := poolAccount(poolID)
	if err := e.transfer.Transfer(ctx, account, providerID, pool.BaseAsset, baseOut); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("amm: withdraw base: %w", err)
	}
	if err := e.transfer.Transfer(ctx, account, providerID, pool.QuoteAsset, quoteOut); err != nil {
		if rerr := e.transfer.Transfer(ctx, providerID, account, pool.BaseAsset, baseOut); rerr != nil {
			e.logger.Error("base clawback failed after quote withdrawal error",
				slog.String("pool_id", poolID),
				slog.String("error", rerr.Error()))
		}
		return decimal.Zero, decimal.Zero, fmt.Errorf("amm: withdraw quote: %w", err)
	}

	pool.BaseReserve = pool.BaseReserve.Sub(baseOut)
	pool.QuoteReserve = pool.QuoteReserve.Sub(quoteOut)
	pool.TotalShares = pool.TotalShares.Sub(shares)
	pos.ShareBalance = pos.ShareBalance.Sub(shares)

	return baseOut, quoteOut, nil
}

// Position returns a copy of the provider's position in the pool.
func (e *Engine) Position(poolID, providerID string) (domain.ProviderPosition, error) {
	state, err := e.state(poolID)
	if err != nil {
		return domain.ProviderPosition{}, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	pos, ok := state.positions[providerID]
	if !ok {
		return domain.ProviderPosition{}, fmt.Errorf("amm: position %s/%s: %w", poolID, providerID, domain.ErrPositionNotFound)
	}
	out := *pos
	out.PendingRewards = make(map[string]decimal.Decimal, len(pos.PendingRewards))
	for asset, amount := range pos.PendingRewards {
		out.PendingRewards[asset] = amount
	}
	return out, nil
}

// DistributeRewards funds amount of asset from the funder into the pool and
// credits every current provider pro-rata to share ownership right now.
// Truncation dust stays in the pool account.
func (e *Engine) DistributeRewards(ctx context.Context, funderID, poolID, asset string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return domain.NewValidationError("amount", "must be positive")
	}

	state, err := e.state(poolID)
	if err != nil {
		return err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.pool.TotalShares.Sign() <= 0 {
		return fmt.Errorf("amm: distribute %s: %w", poolID, domain.ErrInsufficientLiquidity)
	}

	if err := e.transfer.Transfer(ctx, funderID, poolAccount(poolID), asset, amount); err != nil {
		return fmt.Errorf("amm: fund rewards: %w", err)
	}

	asset = strings.ToUpper(asset)
	for _, pos := range state.positions {
		if pos.ShareBalance.Sign() <= 0 {
			continue
		}
		cut := amount.Mul(pos.ShareBalance).Div(state.pool.TotalShares).RoundDown(amountScale)
		if cut.Sign() <= 0 {
			continue
		}
		pos.PendingRewards[asset] = pos.PendingRewards[asset].Add(cut)
	}
	return nil
}

// ClaimRewards pays out and clears the provider's pending rewards.
func (e *Engine) ClaimRewards(ctx context.Context, providerID, poolID string) (map[string]decimal.Decimal, error) {
	state, err := e.state(poolID)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	pos, ok := state.positions[providerID]
	if !ok {
		return nil, fmt.Errorf("amm: claim %s/%s: %w", poolID, providerID, domain.ErrPositionNotFound)
	}

	claimed := make(map[string]decimal.Decimal)
	account := poolAccount(poolID)
	for asset, amount := range pos.PendingRewards {
		if amount.Sign() <= 0 {
			continue
		}
		if err := e.transfer.Transfer(ctx, account, providerID, asset, amount); err != nil {
			return nil, fmt.Errorf("amm: pay rewards %s: %w", asset, err)
		}
		claimed[asset] = amount
		delete(pos.PendingRewards, asset)
	}
	if len(claimed) == 0 {
		return nil, fmt.Errorf("amm: claim %s/%s: %w", poolID, providerID, domain.ErrNoRewardsToClaim)
	}
	return claimed, nil
}

// Rebalance swaps operator funds through the pool until the base/quote
// reserve ratio reaches targetRatio. Deviations within 0.1% are left alone.
// The target reserves follow from the invariant: base' = sqrt(k * r).
func (e *Engine) Rebalance(ctx context.Context, operatorID, poolID string, targetRatio decimal.Decimal) (domain.RebalanceResult, error) {
	if targetRatio.Sign() <= 0 {
		return domain.RebalanceResult{}, domain.NewValidationError("target_ratio", "must be positive")
	}

	state, err := e.state(poolID)
	if err != nil {
		return domain.RebalanceResult{}, err
	}

	state.rebalanceMu.Lock()
	defer state.rebalanceMu.Unlock()

	state.mu.Lock()
	pool := state.pool
	state.mu.Unlock()

	if pool.BaseReserve.Sign() <= 0 || pool.QuoteReserve.Sign() <= 0 {
		return domain.RebalanceResult{}, fmt.Errorf("amm: rebalance %s: %w", poolID, domain.ErrInsufficientLiquidity)
	}

	ratio := pool.BaseReserve.Div(pool.QuoteReserve)
	result := domain.RebalanceResult{
		PoolID:      poolID,
		OldRatio:    ratio,
		NewRatio:    ratio,
		TargetRatio: targetRatio,
	}
	if ratio.Div(targetRatio).Sub(one).Abs().LessThanOrEqual(rebalanceTolerance) {
		return result, nil
	}

	k := pool.K()
	var swapAsset string
	var swapAmount decimal.Decimal
	if ratio.GreaterThan(targetRatio) {
		// Base-heavy: push quote in, pull base out.
		targetQuote := sqrt(k.Div(targetRatio))
		swapAsset = pool.QuoteAsset
		swapAmount = targetQuote.Sub(pool.QuoteReserve).RoundDown(amountScale)
	} else {
		targetBase := sqrt(k.Mul(targetRatio))
		swapAsset = pool.BaseAsset
		swapAmount = targetBase.Sub(pool.BaseReserve).RoundDown(amountScale)
	}
	if swapAmount.Sign() <= 0 {
		return result, nil
	}

	if _, err := e.Swap(ctx, operatorID, poolID, swapAsset, swapAmount, decimal.Zero); err != nil {
		return domain.RebalanceResult{}, fmt.Errorf("amm: rebalance %s: %w", poolID, err)
	}

	after, err := e.Pool(poolID)
	if err != nil {
		return domain.RebalanceResult{}, err
	}
	result.Adjusted = true
	result.SwapAsset = swapAsset
	result.SwapAmount = swapAmount
	result.NewRatio = after.BaseReserve.Div(after.QuoteReserve)

	e.logger.Info("pool rebalanced",
		slog.String("pool_id", poolID),
		slog.String("old_ratio", ratio.String()),
		slog.String("new_ratio", result.NewRatio.String()))
	return result, nil
}

// Metrics summarizes the pool: spot price, quote-denominated TVL, trailing
// 24h fees, and the fee APY those would compound to.
func (e *Engine) Metrics(poolID string) (domain.PoolMetrics, error) {
	state, err := e.state(poolID)
	if err != nil {
		return domain.PoolMetrics{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	pool := state.pool

	var spot decimal.Decimal
	if pool.BaseReserve.Sign() > 0 {
		spot = pool.QuoteReserve.Div(pool.BaseReserve)
	}
	tvl := pool.BaseReserve.Mul(spot).Add(pool.QuoteReserve)

	cutoff := e.clock.Now().Add(-24 * time.Hour)
	kept := state.feeEvents[:0]
	fees24h := decimal.Zero
	for _, ev := range state.feeEvents {
		if ev.at.Before(cutoff) {
			continue
		}
		kept = append(kept, ev)
		fees24h = fees24h.Add(ev.quoteValue)
	}
	state.feeEvents = kept

	var apy decimal.Decimal
	if tvl.Sign() > 0 {
		apy = fees24h.Div(tvl).Mul(daysPerYear).Mul(hundred).RoundDown(4)
	}

	return domain.PoolMetrics{
		PoolID:       poolID,
		SpotPrice:    spot,
		TVL:          tvl,
		Fees24h:      fees24h,
		APY:          apy,
		TotalShares:  pool.TotalShares,
		BaseReserve:  pool.BaseReserve,
		QuoteReserve: pool.QuoteReserve,
	}, nil
}
