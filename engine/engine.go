// Package engine runs the accumulation loop: one goroutine polls prices
// for every instrument on a fixed interval, fires drop-trigger buys, and
// evaluates the profit exit. All state mutations go through the ledger
// book and are persisted before the next decision is taken.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dcabot/alloc"
	"dcabot/exchange"
	"dcabot/executor"
	"dcabot/fault"
	"dcabot/ledger"
	"dcabot/market"
	"dcabot/metrics"
	"dcabot/pnl"
	"dcabot/trigger"
)

// Options wires the engine's collaborators and policy knobs.
type Options struct {
	Client      exchange.Client
	Exec        *executor.Executor
	Store       *ledger.Store
	Monitor     *trigger.Monitor
	Targets     pnl.Targets
	Instruments []string

	Mode         alloc.Mode
	Weights      map[string]float64
	Installments int

	// TotalInvestKRW is the absolute campaign size; 0 means size from
	// TotalInvestFraction of the startup balance instead.
	TotalInvestKRW      float64
	TotalInvestFraction float64

	InitialBuy   bool
	SellFraction float64
	Interval     time.Duration
	Log          *zap.Logger
}

type Engine struct {
	opts       Options
	plan       *alloc.Plan
	book       ledger.Book
	log        *zap.Logger
	retryDelay time.Duration
}

// startupBalanceAttempts bounds the retries of the opening balance
// lookup before startup gives up.
const startupBalanceAttempts = 3

func New(opts Options) *Engine {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.SellFraction <= 0 || opts.SellFraction > 1 {
		opts.SellFraction = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	return &Engine{opts: opts, log: opts.Log, retryDelay: 2 * time.Second}
}

// Book exposes the in-memory ledger; nil before Startup.
func (e *Engine) Book() ledger.Book { return e.book }

// Plan exposes the budget computed at startup; nil before Startup.
func (e *Engine) Plan() *alloc.Plan { return e.plan }

// Startup loads the persisted ledger, sizes the budget from the quote
// balance, seeds the per-instrument plan, and persists the result. Prior
// spend stays inside the total so a restart resumes the same campaign
// instead of double-counting it.
func (e *Engine) Startup(ctx context.Context) error {
	book, err := e.opts.Store.Load()
	if err != nil {
		return err
	}
	e.book = book

	balance, err := e.startupBalance(ctx)
	if err != nil {
		return err
	}
	spent := book.TotalSpent()

	e.plan = &alloc.Plan{
		Total:        campaignTotal(balance, spent, e.opts.TotalInvestKRW, e.opts.TotalInvestFraction),
		Mode:         e.opts.Mode,
		Weights:      e.opts.Weights,
		Installments: e.opts.Installments,
	}
	e.plan.Prepare(book, e.opts.Instruments)

	if err := e.persist(); err != nil {
		return err
	}

	metrics.SetRemainingBudget(e.plan.Total - spent)
	e.log.Info("engine started",
		zap.Float64("balance_krw", balance),
		zap.Float64("total_invest_krw", e.plan.Total),
		zap.Float64("already_spent_krw", spent),
		zap.String("budget_mode", e.plan.Mode.String()),
		zap.Strings("instruments", e.opts.Instruments))
	return nil
}

// startupBalance looks up the quote balance with a bounded retry: a
// transient venue failure at boot should not kill the process outright.
func (e *Engine) startupBalance(ctx context.Context) (float64, error) {
	var lastErr error
	for attempt := 1; attempt <= startupBalanceAttempts; attempt++ {
		balance, err := e.opts.Client.Balance(ctx, market.QuoteCurrency)
		if err == nil {
			return balance, nil
		}
		lastErr = err
		if attempt == startupBalanceAttempts {
			break
		}
		e.log.Warn("balance lookup failed, retrying",
			zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return 0, fault.New(fault.Transient, "engine.startup", ctx.Err())
		case <-time.After(e.retryDelay):
		}
	}
	return 0, fault.New(fault.Transient, "engine.startup", lastErr)
}

// campaignTotal sizes the overall budget. An absolute total is fixed
// across restarts and prior spend counts against it. A fractional total
// treats fraction x current balance as the budget still to deploy, so a
// restart continues at the same pace.
func campaignTotal(balance, spent, absolute, fraction float64) float64 {
	if absolute > 0 {
		if absolute > balance+spent {
			return balance + spent
		}
		return absolute
	}
	return spent + alloc.TotalInvest(balance, 0, fraction)
}

// Run executes the poll loop until the context is canceled. Startup must
// have been called.
func (e *Engine) Run(ctx context.Context) error {
	if e.book == nil {
		return fault.Newf(fault.Config, "engine.run", "startup not performed")
	}

	if e.opts.InitialBuy {
		e.PlaceInitialBuys(ctx)
	}

	timer := time.NewTimer(e.opts.Interval)
	defer timer.Stop()
	for {
		e.Tick(ctx)
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(e.opts.Interval)
		select {
		case <-ctx.Done():
			e.log.Info("engine stopping", zap.Error(ctx.Err()))
			return nil
		case <-timer.C:
		}
	}
}

// PlaceInitialBuys places the first installment for every instrument
// that has no purchase history yet.
func (e *Engine) PlaceInitialBuys(ctx context.Context) {
	for _, inst := range e.opts.Instruments {
		select {
		case <-ctx.Done():
			return
		default:
		}
		l := e.book.Get(inst, e.opts.Installments)
		if l.Done() || len(l.Purchased) > 0 {
			continue
		}
		e.tryBuy(ctx, inst, l, "initial")
	}
}

// Tick runs one evaluation pass over every instrument. A panic inside a
// single instrument's evaluation is contained so the others still run.
// Cancellation is honored between instrument steps: the step in flight
// finishes, the remaining instruments wait for the next start.
func (e *Engine) Tick(ctx context.Context) {
	metrics.RecordTick()
	for _, inst := range e.opts.Instruments {
		select {
		case <-ctx.Done():
			return
		default:
		}
		e.evalGuarded(ctx, inst)
	}
}

func (e *Engine) evalGuarded(ctx context.Context, inst string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("instrument evaluation panicked",
				zap.String("instrument", inst), zap.Any("panic", r))
			metrics.RecordSkip(inst, "panic")
		}
	}()
	e.eval(ctx, inst)
}

func (e *Engine) eval(ctx context.Context, inst string) {
	l := e.book.Get(inst, e.opts.Installments)
	if l.Exited {
		return
	}

	price, err := e.opts.Client.Price(ctx, inst)
	if err != nil || price <= 0 {
		e.log.Warn("price unavailable, skipping",
			zap.String("instrument", inst), zap.Error(err))
		metrics.RecordSkip(inst, "price")
		return
	}

	if !l.Done() {
		// Lazy trigger init: the first observed price becomes the
		// reference, persisted before any buy can depend on it.
		if l.NextBuyPrice == nil {
			next := e.opts.Monitor.NextBuyPrice(inst, price)
			l.NextBuyPrice = &next
			metrics.SetNextBuyPrice(inst, next)
			e.log.Info("trigger initialized",
				zap.String("instrument", inst),
				zap.Float64("reference", price),
				zap.Float64("next_buy", next))
			if err := e.persist(); err != nil {
				e.log.Error("persist failed", zap.Error(err))
				return
			}
		}

		if trigger.Fires(price, *l.NextBuyPrice) {
			e.tryBuy(ctx, inst, l, "trigger")
		}
	}

	e.evalExit(ctx, inst, l, price)
}

// tryBuy sizes and places one installment, then cascades the trigger from
// the fill price. A below-minimum size retires the instrument early: the
// remaining budget can no longer fund a meaningful order.
func (e *Engine) tryBuy(ctx context.Context, inst string, l *ledger.InstrumentLedger, cause string) {
	amount := e.plan.OrderAmount(e.book, inst)
	if amount <= 0 || e.opts.Exec.BelowMin(amount) {
		e.log.Info("order below minimum, completing early",
			zap.String("instrument", inst),
			zap.String("cause", cause),
			zap.Float64("amount", amount),
			zap.Float64("min", e.opts.Exec.MinOrder()))
		metrics.RecordSkip(inst, "below_min")
		l.Completed = true
		if err := e.persist(); err != nil {
			e.log.Error("persist failed", zap.Error(err))
		}
		return
	}

	fill, err := e.opts.Exec.Buy(ctx, l, inst, amount)
	if err != nil {
		e.log.Warn("buy failed",
			zap.String("instrument", inst),
			zap.String("cause", cause),
			zap.String("kind", fault.KindOf(err).String()),
			zap.Error(err))
		metrics.RecordSkip(inst, "order")
		return
	}

	next := e.opts.Monitor.NextBuyPrice(inst, fill.Price)
	l.NextBuyPrice = &next

	metrics.RecordBuy(inst)
	metrics.SetNextBuyPrice(inst, next)
	metrics.SetRemainingBudget(e.plan.Total - e.book.TotalSpent())

	if err := e.persist(); err != nil {
		e.log.Error("persist failed after buy", zap.Error(err))
	}
}

// evalExit liquidates the configured fraction once a profit target is
// met. The exit sale is terminal for the instrument.
func (e *Engine) evalExit(ctx context.Context, inst string, l *ledger.InstrumentLedger, price float64) {
	if !e.opts.Targets.Configured() {
		return
	}

	stats := pnl.Compute(l, price)
	if stats.Held > 0 {
		metrics.SetUnrealizedPct(inst, stats.UnrealizedPct)
	}
	if !pnl.ShouldExit(stats, e.opts.Targets) {
		return
	}

	e.log.Info("profit target met, exiting",
		zap.String("instrument", inst),
		zap.Float64("unrealized_pct", stats.UnrealizedPct),
		zap.Float64("unrealized_krw", stats.UnrealizedKRW),
		zap.Float64("sell_fraction", e.opts.SellFraction))

	fill, err := e.opts.Exec.Sell(ctx, l, inst, e.opts.SellFraction)
	if err != nil {
		e.log.Warn("exit sell failed",
			zap.String("instrument", inst),
			zap.String("kind", fault.KindOf(err).String()),
			zap.Error(err))
		metrics.RecordSkip(inst, "order")
		return
	}

	if err := l.MarkExited(); err != nil {
		e.log.Error("exit transition failed", zap.String("instrument", inst), zap.Error(err))
	}
	metrics.RecordSell(inst)
	e.log.Info("exited",
		zap.String("instrument", inst),
		zap.Float64("sold_quantity", fill.Quantity),
		zap.Float64("proceeds_krw", fill.KRW))

	if err := e.persist(); err != nil {
		e.log.Error("persist failed after exit", zap.Error(err))
	}
}

func (e *Engine) persist() error {
	if err := e.opts.Store.Save(e.book); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}
