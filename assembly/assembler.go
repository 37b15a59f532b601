// Package assembly puts together a PC build that fits a budget.
//
// The budget is split across the build slots by fixed fractions, every slot
// is filled from its own catalog search, and a single rebalancing pass spends
// a large leftover on a better graphics card.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kulmaganbetov/overbot123/models"
	"github.com/kulmaganbetov/overbot123/search"
	"github.com/kulmaganbetov/overbot123/textmatch"
)

// ErrInvalidBudget is returned for a zero or negative budget.
var ErrInvalidBudget = errors.New("budget must be positive")

var (
	searchHeadroom  = decimal.RequireFromString("1.2")
	bandLow         = decimal.RequireFromString("0.6")
	bandHigh        = decimal.RequireFromString("1.4")
	rebalanceBelow  = decimal.RequireFromString("0.85")
	upgradeShare    = decimal.RequireFromString("0.4")
	defaultTimeout  = 2 * time.Second
	defaultUpgrade  = "видеокарта"
	defaultSlotTags = map[models.Slot]string{
		models.SlotCPU:         "процессоры",
		models.SlotMotherboard: "материнские платы",
		models.SlotRAM:         "оперативная память",
		models.SlotGPU:         "видеокарты",
		models.SlotStorage:     "накопители",
		models.SlotPSU:         "блоки питания",
		models.SlotCase:        "корпуса",
	}
)

// Searcher is the catalog search the assembler fills slots from.
type Searcher interface {
	Search(ctx context.Context, query string, filters search.Filters, limit int) ([]search.Candidate, error)
}

// Store persists one build per session.
type Store interface {
	Get(ctx context.Context, sessionID string) (models.Build, error)
	Save(ctx context.Context, sessionID string, build models.Build) error
}

// Options tune an Assembler. Zero values fall back to defaults.
type Options struct {
	// SlotTimeout bounds each slot search; a slot that times out stays empty.
	SlotTimeout time.Duration
	// Labels maps a slot to the catalog category searched for it.
	Labels map[models.Slot]string
	// UpgradeQuery is the free-text search used by the rebalancing pass.
	UpgradeQuery string
}

// DefaultLabels returns the catalog category of every slot.
func DefaultLabels() map[models.Slot]string {
	out := make(map[models.Slot]string, len(defaultSlotTags))
	for s, l := range defaultSlotTags {
		out[s] = l
	}
	return out
}

// Request describes what the customer asked for.
// Keywords and brands steer the searches but never exclude a slot.
type Request struct {
	Budget   decimal.Decimal
	Keywords []string
	Brands   []string
}

type Assembler struct {
	searcher Searcher
	store    Store
	opts     Options
	logger   *slog.Logger
	locks    *keyedMutex
}

func New(searcher Searcher, store Store, opts Options, logger *slog.Logger) *Assembler {
	if opts.SlotTimeout <= 0 {
		opts.SlotTimeout = defaultTimeout
	}
	if strings.TrimSpace(opts.UpgradeQuery) == "" {
		opts.UpgradeQuery = defaultUpgrade
	}
	labels := DefaultLabels()
	for s, l := range opts.Labels {
		if strings.TrimSpace(l) != "" {
			labels[s] = l
		}
	}
	opts.Labels = labels
	if logger == nil {
		logger = slog.Default()
	}

	return &Assembler{
		searcher: searcher,
		store:    store,
		opts:     opts,
		logger:   logger,
		locks:    newKeyedMutex(),
	}
}

// Label is the catalog category searched for the slot.
func (a *Assembler) Label(s models.Slot) string {
	return a.opts.Labels[s]
}

// Allocation is the share of budget reserved for the slot.
func Allocation(budget decimal.Decimal, s models.Slot) decimal.Decimal {
	return budget.Mul(s.Fraction())
}

// Assemble composes a build and stores it as the session's current build.
// Assemblies of the same session run one at a time; the last one saved wins.
func (a *Assembler) Assemble(ctx context.Context, sessionID string, req Request) (models.Build, error) {
	unlock := a.locks.Lock(sessionID)
	defer unlock()

	build, err := a.Compose(ctx, req)
	if err != nil {
		return models.Build{}, err
	}
	if err := a.store.Save(ctx, sessionID, build); err != nil {
		return build, fmt.Errorf("saving build of session %s: %w", sessionID, err)
	}
	return build, nil
}

// Current returns a copy of the session's stored build. A session without
// a build, or a store that cannot be read, yields an empty Build.
func (a *Assembler) Current(ctx context.Context, sessionID string) models.Build {
	unlock := a.locks.Lock(sessionID)
	defer unlock()

	build, err := a.store.Get(ctx, sessionID)
	if err != nil {
		a.logger.Warn("build state unavailable, treating as empty", "session", sessionID, "error", err)
		return models.Build{}
	}
	return build.Clone()
}

// Compose runs the slot searches and the rebalancing pass without touching
// the store. Slots without an acceptable candidate are left empty.
func (a *Assembler) Compose(ctx context.Context, req Request) (models.Build, error) {
	if !req.Budget.IsPositive() {
		return models.Build{}, ErrInvalidBudget
	}

	// slot searches are independent reads of the same snapshot
	picks := make([]*models.ProductSummary, len(models.Slots))
	var g errgroup.Group
	for i, slot := range models.Slots {
		g.Go(func() error {
			picks[i] = a.fillSlot(ctx, slot, req)
			return nil
		})
	}
	_ = g.Wait()

	build := models.Build{Budget: req.Budget}
	for i, slot := range models.Slots {
		if picks[i] != nil {
			build.SetPart(slot, *picks[i])
		}
	}
	build.Recompute()

	a.rebalance(ctx, &build)

	a.logger.Info("build assembled",
		"budget", build.Budget.String(),
		"total", build.Total.String(),
		"filled", build.Filled())
	return build, nil
}

func (a *Assembler) fillSlot(ctx context.Context, slot models.Slot, req Request) *models.ProductSummary {
	allocated := Allocation(req.Budget, slot)
	label := a.Label(slot)
	maxPrice := allocated.Mul(searchHeadroom).Floor()

	terms := make([]string, 0, 1+len(req.Keywords)+len(req.Brands))
	terms = append(terms, label)
	terms = append(terms, req.Keywords...)
	terms = append(terms, req.Brands...)

	ctx, cancel := context.WithTimeout(ctx, a.opts.SlotTimeout)
	defer cancel()

	found, err := a.searcher.Search(ctx, strings.Join(terms, " "), search.Filters{
		Category: []string{label},
		MaxPrice: &maxPrice,
	}, search.DefaultLimit)
	if err != nil {
		a.logger.Warn("slot search failed, leaving slot empty", "slot", slot.String(), "error", err)
		return nil
	}

	pick := choose(found, allocated, req.Brands)
	if pick == nil {
		a.logger.Debug("no candidate within tolerance", "slot", slot.String(), "allocated", allocated.String(), "found", len(found))
	}
	return pick
}

// choose keeps the candidates priced strictly inside (0.6, 1.4) of the
// allocation, orders requested brands first and then by price, and takes
// the element at len/2.
func choose(found []search.Candidate, allocated decimal.Decimal, brands []string) *models.ProductSummary {
	low, high := allocated.Mul(bandLow), allocated.Mul(bandHigh)

	var inBand []models.ProductSummary
	for _, c := range found {
		if c.Price.GreaterThan(low) && c.Price.LessThan(high) {
			inBand = append(inBand, c.ProductSummary)
		}
	}
	if len(inBand) == 0 {
		return nil
	}

	wanted := textmatch.NormalizeAll(brands)
	preferred := func(p models.ProductSummary) bool {
		name := textmatch.Normalize(p.Name)
		for _, b := range wanted {
			if strings.Contains(name, b) {
				return true
			}
		}
		return false
	}

	slices.SortStableFunc(inBand, func(x, y models.ProductSummary) int {
		px, py := preferred(x), preferred(y)
		switch {
		case px && !py:
			return -1
		case py && !px:
			return 1
		}
		return x.Price.Cmp(y.Price)
	})

	pick := inBand[len(inBand)/2]
	return &pick
}

// rebalance spends a large leftover on the graphics card. It runs once and
// only replaces the card when that raises the total.
func (a *Assembler) rebalance(ctx context.Context, build *models.Build) {
	if !build.Total.LessThan(build.Budget.Mul(rebalanceBelow)) {
		return
	}

	maxPrice := build.Budget.Mul(upgradeShare)
	ctx, cancel := context.WithTimeout(ctx, a.opts.SlotTimeout)
	defer cancel()

	found, err := a.searcher.Search(ctx, a.opts.UpgradeQuery, search.Filters{MaxPrice: &maxPrice}, search.DefaultLimit)
	if err != nil {
		a.logger.Warn("upgrade search failed", "error", err)
		return
	}

	var best *models.ProductSummary
	for i := range found {
		c := found[i].ProductSummary
		if !c.Price.IsPositive() {
			continue
		}
		if best == nil || c.Price.GreaterThan(best.Price) {
			best = &c
		}
	}
	if best == nil {
		return
	}

	if current, ok := build.Part(models.SlotGPU); ok && !best.Price.GreaterThan(current.Price) {
		return
	}

	before := build.Total
	build.SetPart(models.SlotGPU, *best)
	build.Recompute()
	a.logger.Info("graphics card upgraded with leftover budget",
		"sku", best.SKU,
		"total_before", before.String(),
		"total_after", build.Total.String())
}
