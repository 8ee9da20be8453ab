package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"martflow/internal/intermediate"
	"martflow/internal/marts"
	"martflow/internal/observability"
	"martflow/internal/reporting"
	"martflow/internal/source"
	"martflow/internal/staging"
	"martflow/pkg/errors"
)

// Options configures a Runner.
type Options struct {
	// Parallel runs the customer branch (int_customer_orders, dim_customers)
	// and the sales branch (fct_daily_sales, rpt_sales_summary) side by side
	// once int_order_items is complete.
	Parallel  bool
	Segmenter marts.Segmenter
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// Runner executes the model graph over one set of raw sources.
type Runner struct {
	opts Options
	mu   sync.Mutex
}

// NewRunner creates a Runner. Unset options fall back to a no-op logger
// and the default segments.
func NewRunner(opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.Segmenter.Names()) == 0 {
		opts.Segmenter = marts.DefaultSegmenter()
	}
	return &Runner{opts: opts}
}

// Run computes every model. A cast failure in staging aborts the run;
// nothing downstream is computed.
func (r *Runner) Run(ctx context.Context, raw *source.Raw) (*Results, error) {
	if err := Models.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "model graph is inconsistent")
	}

	res := &Results{Raw: raw, Timings: make(map[string]time.Duration)}
	started := time.Now()

	stg := &staging.Output{}
	var err error
	if err = r.stage(ctx, res, staging.CustomersModel, func() (int, error) {
		stg.Customers, err = staging.Customers(raw.Customers)
		return len(stg.Customers), err
	}); err != nil {
		return nil, err
	}
	if err = r.stage(ctx, res, staging.OrdersModel, func() (int, error) {
		stg.Orders, err = staging.Orders(raw.Orders)
		return len(stg.Orders), err
	}); err != nil {
		return nil, err
	}
	if err = r.stage(ctx, res, staging.ProductsModel, func() (int, error) {
		stg.Products, err = staging.Products(raw.Products)
		return len(stg.Products), err
	}); err != nil {
		return nil, err
	}
	res.Staging = stg

	if err := r.stage(ctx, res, intermediate.OrderItemsModel, func() (int, error) {
		res.OrderItems, err = intermediate.OrderItems(stg.Orders, stg.Products)
		return len(res.OrderItems), err
	}); err != nil {
		return nil, err
	}

	if r.opts.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return r.customerBranch(gctx, res) })
		g.Go(func() error { return r.salesBranch(gctx, res) })
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		if err := r.customerBranch(ctx, res); err != nil {
			return nil, err
		}
		if err := r.salesBranch(ctx, res); err != nil {
			return nil, err
		}
	}

	r.opts.Logger.Info("pipeline complete",
		zap.Int("models", len(res.Timings)),
		zap.Bool("parallel", r.opts.Parallel),
		zap.Duration("duration", time.Since(started)),
	)
	return res, nil
}

func (r *Runner) customerBranch(ctx context.Context, res *Results) error {
	if err := r.stage(ctx, res, intermediate.CustomerOrdersModel, func() (int, error) {
		res.CustomerOrders = intermediate.CustomerOrders(res.Staging.Customers, res.OrderItems)
		return len(res.CustomerOrders), nil
	}); err != nil {
		return err
	}
	return r.stage(ctx, res, marts.CustomersModel, func() (int, error) {
		res.Customers = marts.Customers(res.CustomerOrders, r.opts.Segmenter)
		return len(res.Customers), nil
	})
}

func (r *Runner) salesBranch(ctx context.Context, res *Results) error {
	if err := r.stage(ctx, res, marts.DailySalesModel, func() (int, error) {
		res.DailySales = marts.DailySales(res.OrderItems)
		return len(res.DailySales), nil
	}); err != nil {
		return err
	}
	return r.stage(ctx, res, reporting.SummaryModel, func() (int, error) {
		res.Summary = reporting.Summarize(res.DailySales)
		return 1, nil
	})
}

// stage runs one model, checking for cancellation first, and records its
// timing, row count and log line.
func (r *Runner) stage(ctx context.Context, res *Results, model string, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCanceled, "run canceled").WithContext("model", model)
	}

	start := time.Now()
	rows, err := fn()
	elapsed := time.Since(start)
	if err != nil {
		r.opts.Logger.Error("model failed", zap.String("model", model), zap.Error(err))
		return err
	}

	layer := ""
	if n, ok := Models.Node(model); ok {
		layer = string(n.Layer)
	}

	r.mu.Lock()
	res.Timings[model] = elapsed
	r.mu.Unlock()

	r.opts.Metrics.ObserveStage(model, layer, rows, elapsed)
	r.opts.Logger.Info("model built",
		zap.String("model", model),
		zap.String("layer", layer),
		zap.Int("rows", rows),
		zap.Duration("duration", elapsed),
	)
	return nil
}
