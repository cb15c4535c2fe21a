package models

import (
	"encoding/json"
	"fmt"
)

// Category is the numeric offer category used by the upstream feed.
type Category int

const (
	CategoryRestaurant Category = 1
	CategoryRetail     Category = 2
	CategoryHotel      Category = 3
	CategoryActivity   Category = 4
)

var categoryNames = map[Category]string{
	CategoryRestaurant: "RESTAURANT",
	CategoryRetail:     "RETAIL",
	CategoryHotel:      "HOTEL",
	CategoryActivity:   "ACTIVITY",
}

var categoryIDs = func() map[string]Category {
	m := make(map[string]Category, len(categoryNames))
	for id, name := range categoryNames {
		m[name] = id
	}
	return m
}()

// Valid reports whether c is one of the four known category ids.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// Name returns the upper-case category name, or an error for an unknown id.
func (c Category) Name() (string, error) {
	name, ok := categoryNames[c]
	if !ok {
		return "", fmt.Errorf("unknown category id %d", int(c))
	}
	return name, nil
}

// CategoryByName resolves an upper-case category name back to its id.
func CategoryByName(name string) (Category, bool) {
	c, ok := categoryIDs[name]
	return c, ok
}

// Merchant is a merchant attached to an offer. Distance is from the
// guest's search point.
type Merchant struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// Merchants holds an offer's merchant value. The feed delivers it as an
// array, but once the pipeline collapses it to the closest merchant it is
// serialized back as a single object, so both shapes must survive a JSON
// round trip.
type Merchants struct {
	List []Merchant
	// Single marks that the value was (or should be) a bare object
	// rather than an array.
	Single bool
}

// UnmarshalJSON accepts either a single merchant object or an array.
func (m *Merchants) UnmarshalJSON(data []byte) error {
	var one Merchant
	if err := json.Unmarshal(data, &one); err == nil {
		m.List = []Merchant{one}
		m.Single = true
		return nil
	}

	var many []Merchant
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("merchants is neither an object nor an array: %w", err)
	}
	m.List = many
	m.Single = false
	return nil
}

// MarshalJSON re-emits the shape the value currently holds.
func (m Merchants) MarshalJSON() ([]byte, error) {
	if m.Single && len(m.List) == 1 {
		return json.Marshal(m.List[0])
	}
	return json.Marshal(m.List)
}

// Closest returns the merchant with the minimum distance. It assumes a
// non-empty list, which boundary validation guarantees.
func (m Merchants) Closest() Merchant {
	closest := m.List[0]
	for _, cand := range m.List[1:] {
		if cand.Distance < closest.Distance {
			closest = cand
		}
	}
	return closest
}

// Offer is a single offer record from the upstream feed. Title and
// Description are carried through untouched.
type Offer struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Merchants   Merchants `json:"merchants"`
	ValidTo     string    `json:"valid_to"`
}

// OffersPayload is the top-level shape of the upstream feed response. The
// offers key is required; its absence is a data error, not an empty result.
type OffersPayload struct {
	Offers []Offer `json:"offers"`
}

// RecommendationsResponse is the API response for a recommendation run.
type RecommendationsResponse struct {
	RunID  string  `json:"run_id"`
	Offers []Offer `json:"offers"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
