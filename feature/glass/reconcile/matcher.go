package reconcile

import (
	"context"
	"errors"
	"fmt"

	"glass-tracker/core/ordernumber"
	"glass-tracker/core/utils"
	"glass-tracker/feature/glass/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Match reasons recorded on line items.
const (
	ReasonExact     = "exact"
	ReasonSuffix    = "suffix"
	ReasonBase      = "base"
	ReasonNotFound  = "not_found"
	ReasonAmbiguous = "ambiguous"
	reasonParse     = "parse_error:"
	reasonManual    = "manual:"
)

// Decision is the matcher's verdict for one raw order number.
type Decision struct {
	Status      models.MatchStatus `json:"status"`
	OrderNumber string             `json:"order_number,omitempty"`
	Reason      string             `json:"reason"`
	Candidates  []string           `json:"candidates,omitempty"`
	// Err carries the downgraded failure: *ordernumber.ParseError, *AmbiguityError
	// or *NotFoundError.
	Err error `json:"-"`
}

// candidate is a live order as seen by the matcher.
type candidate struct {
	number    string
	canonical string
	hasSuffix bool
}

// orderIndex holds every live order plausible for a set of raw numbers.
type orderIndex struct {
	byNumber map[string]struct{}
	byBase   map[string][]candidate
}

func newOrderIndex(orders []models.Order) *orderIndex {
	idx := &orderIndex{
		byNumber: make(map[string]struct{}, len(orders)),
		byBase:   make(map[string][]candidate),
	}
	for _, o := range orders {
		idx.byNumber[o.OrderNumber] = struct{}{}
		p, err := ordernumber.Parse(o.OrderNumber)
		if err != nil {
			continue
		}
		idx.byBase[p.Base] = append(idx.byBase[p.Base], candidate{
			number:    o.OrderNumber,
			canonical: p.Canonical(),
			hasSuffix: p.HasSuffix(),
		})
	}
	return idx
}

// loadOrderIndex loads the live orders plausible for raws, once per distinct raw.
func loadOrderIndex(ctx context.Context, db *gorm.DB, raws []string) (*orderIndex, error) {
	numbers := utils.UniqueSorted(raws)
	bases := utils.NewStringSet()
	for _, raw := range numbers {
		if p, err := ordernumber.Parse(raw); err == nil {
			bases.Add(p.Base)
		}
	}
	if len(numbers) == 0 {
		return newOrderIndex(nil), nil
	}

	var orders []models.Order
	q := db.WithContext(ctx).Select("id", "order_number", "order_number_base", "order_number_suffix")
	if len(bases) > 0 {
		q = q.Where("order_number IN ? OR order_number_base IN ?", numbers, bases.Sorted())
	} else {
		q = q.Where("order_number IN ?", numbers)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load candidate orders: %w", err)
	}
	return newOrderIndex(orders), nil
}

// decide attributes raw against the index. It never fails; failures are downgraded
// into the decision.
func (idx *orderIndex) decide(raw string) Decision {
	if _, ok := idx.byNumber[raw]; ok {
		return Decision{Status: models.MatchMatched, OrderNumber: raw, Reason: ReasonExact}
	}

	parsed, err := ordernumber.Parse(raw)
	if err != nil {
		var pe *ordernumber.ParseError
		reason := reasonParse + ordernumber.ReasonMalformed
		if errors.As(err, &pe) {
			reason = reasonParse + pe.Reason
		}
		return Decision{Status: models.MatchUnmatched, Reason: reason, Err: err}
	}

	group := idx.byBase[parsed.Base]

	if parsed.HasSuffix() {
		var plausible []string
		for _, c := range group {
			if c.canonical == parsed.Canonical() {
				plausible = append(plausible, c.number)
			}
		}
		return verdict(raw, plausible, ReasonSuffix)
	}

	plausible := make([]string, 0, len(group))
	for _, c := range group {
		plausible = append(plausible, c.number)
	}
	if len(plausible) == 1 && group[0].hasSuffix {
		// A lone variant is not the base order; the raw number could mean either.
		return ambiguous(raw, plausible)
	}
	return verdict(raw, plausible, ReasonBase)
}

func verdict(raw string, plausible []string, reason string) Decision {
	switch len(plausible) {
	case 0:
		return Decision{Status: models.MatchUnmatched, Reason: ReasonNotFound, Err: &NotFoundError{Raw: raw}}
	case 1:
		return Decision{Status: models.MatchMatched, OrderNumber: plausible[0], Reason: reason}
	default:
		return ambiguous(raw, plausible)
	}
}

func ambiguous(raw string, plausible []string) Decision {
	candidates := utils.UniqueSorted(plausible)
	return Decision{
		Status:     models.MatchConflict,
		Reason:     ReasonAmbiguous,
		Candidates: candidates,
		Err:        &AmbiguityError{Raw: raw, Candidates: candidates},
	}
}

// MatchReport summarizes one matcher pass.
type MatchReport struct {
	Matched   int `json:"matched"`
	Conflict  int `json:"conflict"`
	Unmatched int `json:"unmatched"`
	Unchanged int `json:"unchanged"`
	// Lost counts items another writer changed between read and write.
	Lost int `json:"lost"`

	// Orders lists order numbers whose matched-item set changed.
	Orders utils.StringSet `json:"-"`
	// Raws lists raw numbers whose missing-order validation needs a refresh.
	Raws utils.StringSet `json:"-"`
}

func newMatchReport() MatchReport {
	return MatchReport{Orders: utils.NewStringSet(), Raws: utils.NewStringSet()}
}

func (r *MatchReport) merge(o MatchReport) {
	r.Matched += o.Matched
	r.Conflict += o.Conflict
	r.Unmatched += o.Unmatched
	r.Unchanged += o.Unchanged
	r.Lost += o.Lost
	r.Orders.Merge(o.Orders)
	r.Raws.Merge(o.Raws)
}

// matchItems runs the matcher over items of one kind and persists changed decisions.
// Only database errors fail the call.
func (e *Engine) matchItems(ctx context.Context, t itemTable, items []itemRow) (MatchReport, error) {
	report := newMatchReport()
	if len(items) == 0 {
		return report, nil
	}

	raws := make([]string, 0, len(items))
	for _, it := range items {
		raws = append(raws, it.OrderNumber)
	}
	idx, err := loadOrderIndex(ctx, e.db, raws)
	if err != nil {
		return report, err
	}

	decisions := make(map[string]Decision, len(raws))
	for _, it := range items {
		d, ok := decisions[it.OrderNumber]
		if !ok {
			d = idx.decide(it.OrderNumber)
			decisions[it.OrderNumber] = d
		}

		changed, err := e.applyDecision(ctx, t, it, d)
		if err != nil {
			return report, err
		}
		if !changed {
			if sameDecision(it, d) {
				report.Unchanged++
			} else {
				report.Lost++
			}
			continue
		}

		switch d.Status {
		case models.MatchMatched:
			report.Matched++
		case models.MatchConflict:
			report.Conflict++
		case models.MatchUnmatched:
			report.Unmatched++
			e.logger.Debug("Line item unmatched",
				zap.String("kind", string(t.kind)),
				zap.Uint("item_id", it.ID),
				zap.String("order_number", it.OrderNumber),
				zap.String("reason", d.Reason),
			)
		}

		if it.MatchStatus == models.MatchMatched && it.MatchedOrderNumber != d.OrderNumber {
			report.Orders.Add(it.MatchedOrderNumber)
		}
		if d.Status == models.MatchMatched && (it.MatchStatus != models.MatchMatched || it.MatchedOrderNumber != d.OrderNumber) {
			report.Orders.Add(d.OrderNumber)
		}
		if it.MatchStatus == models.MatchUnmatched || d.Status == models.MatchUnmatched {
			report.Raws.Add(it.OrderNumber)
		}
	}

	return report, nil
}

func sameDecision(it itemRow, d Decision) bool {
	return it.MatchStatus == d.Status &&
		it.MatchedOrderNumber == d.OrderNumber &&
		it.MatchReason == d.Reason &&
		it.ConflictCandidates == utils.JoinList(d.Candidates)
}

// applyDecision writes d to the item unless it is already recorded. The update is
// conditional on the status the matcher observed and, for a match, on the target
// order still being live; losing either race returns changed=false.
func (e *Engine) applyDecision(ctx context.Context, t itemTable, it itemRow, d Decision) (bool, error) {
	if sameDecision(it, d) {
		return false, nil
	}

	q := e.db.WithContext(ctx).Table(t.items).
		Where("id = ? AND match_status = ? AND matched_order_number = ?", it.ID, it.MatchStatus, it.MatchedOrderNumber)
	if d.Status == models.MatchMatched {
		q = q.Where(liveOrderExists, d.OrderNumber)
	}
	res := q.Updates(map[string]any{
			"match_status":         d.Status,
			"matched_order_number": d.OrderNumber,
			"match_reason":         d.Reason,
			"conflict_candidates":  utils.JoinList(d.Candidates),
			"updated_at":           e.now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update %s %d: %w", t.items, it.ID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Explain runs the matcher for raw without writing anything.
func (e *Engine) Explain(ctx context.Context, raw string) (Decision, error) {
	idx, err := loadOrderIndex(ctx, e.db, []string{raw})
	if err != nil {
		return Decision{}, err
	}
	return idx.decide(raw), nil
}

// AssignItem records an operator attribution of a line item to an existing order.
// The item becomes matched with reason manual:<actor>; sweeps leave it alone from then on.
func (e *Engine) AssignItem(ctx context.Context, kind models.ItemKind, itemID uint, orderNumber, actor string) (SettleReport, error) {
	t, err := tableFor(kind)
	if err != nil {
		return SettleReport{}, err
	}
	if actor == "" {
		return SettleReport{}, fmt.Errorf("%w: actor is required", ErrInvalidFact)
	}

	var it itemRow
	res := e.db.WithContext(ctx).Table(t.items).Select(t.selectRow()).Where("id = ?", itemID).Limit(1).Scan(&it)
	if res.Error != nil {
		return SettleReport{}, fmt.Errorf("failed to load item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return SettleReport{}, ErrItemNotFound
	}

	var order models.Order
	if err := e.db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SettleReport{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderNumber)
		}
		return SettleReport{}, fmt.Errorf("failed to load order: %w", err)
	}

	d := Decision{Status: models.MatchMatched, OrderNumber: order.OrderNumber, Reason: reasonManual + actor}
	changed, err := e.applyDecision(ctx, t, it, d)
	if err != nil {
		return SettleReport{}, err
	}
	if !changed && !sameDecision(it, d) {
		return SettleReport{}, ErrConcurrentUpdate
	}

	e.logger.Info("Line item assigned manually",
		zap.String("kind", string(kind)),
		zap.Uint("item_id", itemID),
		zap.String("order_number", order.OrderNumber),
		zap.String("previous", it.MatchedOrderNumber),
		zap.String("actor", actor),
	)

	orders := utils.NewStringSet(order.OrderNumber)
	if it.MatchStatus == models.MatchMatched {
		orders.Add(it.MatchedOrderNumber)
	}
	return e.settle(ctx, orders.Sorted(), []string{it.OrderNumber}), nil
}
