// Package pipeline narrows a fetched offer list down to a recommended set
// for a guest's stay. Stages are applied in a fixed order; each one takes
// the current working set and produces a new one, so earlier snapshots are
// never mutated behind an observer's back.
//
// The required order is:
//
//	CategoryFilter -> DateFilter -> MerchantFilter ->
//	ClosestMerchantPerCategoryFilter -> TopTwoOffersFilter
//
// MerchantFilter collapses every offer to its single closest merchant;
// the two stages after it depend on that shape and refuse to run before
// it (ErrStageOrder).
package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/calendar"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/models"
)

// Stage names a pipeline stage, used for observer callbacks and traces.
type Stage string

const (
	StageCategoryFilter           Stage = "category_filter"
	StageDateFilter               Stage = "date_filter"
	StageMerchantFilter           Stage = "merchant_filter"
	StageClosestPerCategoryFilter Stage = "closest_merchant_per_category_filter"
	StageTopTwoFilter             Stage = "top_two_offers_filter"
)

// ErrStageOrder is returned when a stage that needs singular merchants
// runs before MerchantFilter.
var ErrStageOrder = errors.New("pipeline: merchant filter must run before this stage")

// CategoryNotFoundError is returned when a requested category has no
// offers in the current working set. Requesting an absent category is a
// hard error, not an empty result.
type CategoryNotFoundError struct {
	Category string
}

func (e *CategoryNotFoundError) Error() string {
	return fmt.Sprintf("pipeline: no offers for requested category %q", e.Category)
}

// Observer is invoked after every stage with a snapshot of the working
// set. Observers must not retain or mutate the slice.
type Observer func(stage Stage, offers []models.Offer)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver registers a stage observer.
func WithObserver(obs Observer) Option {
	return func(p *Pipeline) {
		p.observers = append(p.observers, obs)
	}
}

// Pipeline holds the working set of offers and the guest's checkin date.
type Pipeline struct {
	offers             []models.Offer
	checkin            calendar.Date
	merchantsCollapsed bool
	observers          []Observer
}

// New builds a pipeline over the given offers. The checkin date is
// validated once here; construction fails on a malformed date before any
// offer is touched.
func New(offers []models.Offer, checkinDate string, opts ...Option) (*Pipeline, error) {
	if !calendar.IsValid(checkinDate) {
		return nil, &calendar.ParseError{
			Input: checkinDate,
			Err:   errors.New("checkin date is out of range or malformed"),
		}
	}
	checkin, err := calendar.Parse(checkinDate)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		offers:  append([]models.Offer(nil), offers...),
		checkin: checkin,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Checkin returns the validated checkin date.
func (p *Pipeline) Checkin() calendar.Date { return p.checkin }

// CategoryFilter keeps only offers whose category name matches one of the
// requested names (case-insensitive). A requested name with no matching
// offers fails with *CategoryNotFoundError.
func (p *Pipeline) CategoryFilter(names []string) error {
	groups, _, err := p.groupByCategory()
	if err != nil {
		return err
	}

	next := make([]models.Offer, 0, len(p.offers))
	for _, name := range names {
		key := strings.ToUpper(name)
		group, ok := groups[key]
		if !ok {
			return &CategoryNotFoundError{Category: key}
		}
		next = append(next, group...)
	}

	p.offers = next
	p.notify(StageCategoryFilter)
	return nil
}

// DateFilter drops offers that expire before the guest's last stay date,
// where the last stay date is the checkin date plus extensionDays.
func (p *Pipeline) DateFilter(extensionDays int) error {
	lastStay, err := calendar.AddDays(p.checkin, extensionDays)
	if err != nil {
		return err
	}

	next := make([]models.Offer, 0, len(p.offers))
	for _, offer := range p.offers {
		expiry, err := calendar.Parse(offer.ValidTo)
		if err != nil {
			return fmt.Errorf("offer %d: %w", offer.ID, err)
		}
		if !lastStay.After(expiry) {
			next = append(next, offer)
		}
	}

	p.offers = next
	p.notify(StageDateFilter)
	return nil
}

// MerchantFilter collapses every offer's merchant list to the single
// closest merchant, sorted ascending by distance. It is idempotent: an
// already-singular offer is its own fixed point.
func (p *Pipeline) MerchantFilter() error {
	next := make([]models.Offer, 0, len(p.offers))
	for _, offer := range p.offers {
		merchants := append([]models.Merchant(nil), offer.Merchants.List...)
		if len(merchants) > 1 {
			sort.Slice(merchants, func(i, j int) bool {
				return merchants[i].Distance < merchants[j].Distance
			})
		}
		offer.Merchants = models.Merchants{
			List:   merchants[:1],
			Single: true,
		}
		next = append(next, offer)
	}

	p.offers = next
	p.merchantsCollapsed = true
	p.notify(StageMerchantFilter)
	return nil
}

// ClosestMerchantPerCategoryFilter keeps, for each category present, the
// single offer whose merchant is closest. Categories appear in the order
// they were first seen in the working set.
func (p *Pipeline) ClosestMerchantPerCategoryFilter() error {
	if !p.merchantsCollapsed {
		return ErrStageOrder
	}

	groups, order, err := p.groupByCategory()
	if err != nil {
		return err
	}

	next := make([]models.Offer, 0, len(order))
	for _, name := range order {
		group := groups[name]
		best := group[0]
		for _, offer := range group[1:] {
			if offer.Merchants.List[0].Distance < best.Merchants.List[0].Distance {
				best = offer
			}
		}
		next = append(next, best)
	}

	p.offers = next
	p.notify(StageClosestPerCategoryFilter)
	return nil
}

// TopTwoOffersFilter keeps the two offers with the globally closest
// merchants, by two linear scans rather than a sort: only two picks are
// ever needed. Fewer than two offers in the working set yields fewer.
func (p *Pipeline) TopTwoOffersFilter() error {
	if !p.merchantsCollapsed {
		return ErrStageOrder
	}

	seen := make(map[int64]bool, 2)
	next := make([]models.Offer, 0, 2)
	for i := 0; i < 2; i++ {
		best, ok := p.closestUnseen(seen)
		if !ok {
			break
		}
		next = append(next, best)
		seen[best.ID] = true
	}

	p.offers = next
	p.notify(StageTopTwoFilter)
	return nil
}

// Offers returns the current working set, the pipeline's terminal output.
func (p *Pipeline) Offers() []models.Offer {
	return p.offers
}

// closestUnseen scans the working set for the closest-merchant offer
// whose id is not yet in seen.
func (p *Pipeline) closestUnseen(seen map[int64]bool) (models.Offer, bool) {
	var best models.Offer
	found := false
	for _, offer := range p.offers {
		if seen[offer.ID] {
			continue
		}
		dist := offer.Merchants.List[0].Distance
		if !found || dist < best.Merchants.List[0].Distance {
			best = offer
			found = true
		}
	}
	return best, found
}

// groupByCategory maps category name to the offers carrying it, plus the
// first-seen order of the names.
func (p *Pipeline) groupByCategory() (map[string][]models.Offer, []string, error) {
	groups := make(map[string][]models.Offer)
	var order []string
	for _, offer := range p.offers {
		name, err := offer.Category.Name()
		if err != nil {
			return nil, nil, fmt.Errorf("offer %d: %w", offer.ID, err)
		}
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], offer)
	}
	return groups, order, nil
}

// notify hands a snapshot of the working set to every observer.
func (p *Pipeline) notify(stage Stage) {
	if len(p.observers) == 0 {
		return
	}
	snapshot := append([]models.Offer(nil), p.offers...)
	for _, obs := range p.observers {
		obs(stage, snapshot)
	}
}
