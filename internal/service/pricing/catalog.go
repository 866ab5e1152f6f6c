// Package pricing is the read-only service catalog: durations drive slot
// counts and prices drive revenue reporting.
package pricing

import (
	"github.com/shopspring/decimal"
)

const DefaultDurationMinutes = 60

type Service struct {
	ID              string
	Name            string
	Description     string
	Price           decimal.Decimal
	DurationMinutes int
}

type Addon struct {
	ID    string
	Price decimal.Decimal
}

// Lookup is what the scheduling core needs from the catalog.
type Lookup interface {
	DurationMinutes(serviceType string) int
}

type Catalog struct {
	services []Service
	byID     map[string]Service
	addons   map[string]Addon
}

func NewCatalog(services []Service, addons []Addon) *Catalog {
	c := &Catalog{
		services: append([]Service(nil), services...),
		byID:     make(map[string]Service, len(services)),
		addons:   make(map[string]Addon, len(addons)),
	}
	for _, s := range services {
		c.byID[s.ID] = s
	}
	for _, a := range addons {
		c.addons[a.ID] = a
	}
	return c
}

func cents(n int64) decimal.Decimal {
	return decimal.New(n, -2)
}

// DefaultCatalog returns the detailing packages and add-ons offered to customers.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		[]Service{
			{
				ID:              "basic_shine",
				Name:            "Basic Shine Package",
				Description:     "Essential car cleaning with exterior wash and basic interior cleaning",
				Price:           cents(6000),
				DurationMinutes: 60,
			},
			{
				ID:              "full_interior",
				Name:            "Full Interior Shine",
				Description:     "Complete interior detailing including deep cleaning, vacuuming, and conditioning",
				Price:           cents(9000),
				DurationMinutes: 120,
			},
			{
				ID:              "earned_signature",
				Name:            "Earned Shine Signature Package",
				Description:     "Premium full-service detailing with exterior wash, wax, interior deep clean, and protection",
				Price:           cents(13000),
				DurationMinutes: 180,
			},
		},
		[]Addon{
			{ID: "clay_bar_treatment", Price: cents(4000)},
			{ID: "headlight_restoration", Price: cents(3000)},
			{ID: "high_gloss_tire_dressing", Price: cents(1000)},
			{ID: "windshield_rain_repellent", Price: cents(1500)},
			{ID: "pet_hair_removal", Price: cents(2000)},
			{ID: "ozone_odor_treatment", Price: cents(3000)},
			{ID: "stain_extraction", Price: cents(1000)},
			{ID: "engine_bay_deep_cleaning", Price: cents(3000)},
			{ID: "scratch_paint_touch_up", Price: cents(5000)},
		},
	)
}

// Services returns the catalog in display order.
func (c *Catalog) Services() []Service {
	return append([]Service(nil), c.services...)
}

func (c *Catalog) Service(id string) (Service, bool) {
	s, ok := c.byID[id]
	return s, ok
}

func (c *Catalog) HasAddon(id string) bool {
	_, ok := c.addons[id]
	return ok
}

// DurationMinutes falls back to DefaultDurationMinutes for unknown services.
func (c *Catalog) DurationMinutes(serviceType string) int {
	if s, ok := c.byID[serviceType]; ok {
		return s.DurationMinutes
	}
	return DefaultDurationMinutes
}

// TotalPrice sums the service and add-on prices; unknown ids contribute zero.
func (c *Catalog) TotalPrice(serviceType string, addons []string) decimal.Decimal {
	total := decimal.Zero
	if s, ok := c.byID[serviceType]; ok {
		total = total.Add(s.Price)
	}
	for _, id := range addons {
		if a, ok := c.addons[id]; ok {
			total = total.Add(a.Price)
		}
	}
	return total
}
