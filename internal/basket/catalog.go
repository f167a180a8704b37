package basket

import (
	"fmt"

	"github.com/wonny/yieldpilot/internal/contracts"
)

// TotalAllocationBp is the required allocation sum per basket
const TotalAllocationBp = 10000

// Catalog holds the fixed basket definitions. Read-only after Load;
// never mutated at runtime.
// ⭐ SSOT: basket reference data lives here only
type Catalog struct {
	baskets []contracts.BasketDefinition
}

// DefaultDefinitions returns the built-in three-tier basket set
func DefaultDefinitions() []contracts.BasketDefinition {
	return []contracts.BasketDefinition{
		{
			ID:       0,
			Name:     "Stable Reserve",
			RiskTier: "conservative",
			Allocations: []contracts.Allocation{
				{Symbol: "USDC", WeightBp: 6000},
				{Symbol: "ETH", WeightBp: 2000},
				{Symbol: "BTC", WeightBp: 2000},
			},
		},
		{
			ID:       1,
			Name:     "Core Balanced",
			RiskTier: "balanced",
			Allocations: []contracts.Allocation{
				{Symbol: "USDC", WeightBp: 3000},
				{Symbol: "ETH", WeightBp: 3500},
				{Symbol: "BTC", WeightBp: 3500},
			},
		},
		{
			ID:       2,
			Name:     "Growth Tilt",
			RiskTier: "growth",
			Allocations: []contracts.Allocation{
				{Symbol: "USDC", WeightBp: 1000},
				{Symbol: "ETH", WeightBp: 4500},
				{Symbol: "BTC", WeightBp: 4500},
			},
		},
	}
}

// NewCatalog validates the definitions and builds a catalog
func NewCatalog(defs []contracts.BasketDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("catalog requires at least one basket")
	}

	for i, def := range defs {
		if def.ID != i {
			return nil, fmt.Errorf("basket %q: id %d out of order, want %d", def.Name, def.ID, i)
		}

		sum := 0
		for _, a := range def.Allocations {
			if a.WeightBp < 0 {
				return nil, fmt.Errorf("basket %q: negative allocation for %s", def.Name, a.Symbol)
			}
			sum += a.WeightBp
		}
		if sum != TotalAllocationBp {
			return nil, fmt.Errorf("basket %q: allocations sum to %d, want %d", def.Name, sum, TotalAllocationBp)
		}
	}

	return &Catalog{baskets: defs}, nil
}

// NewDefaultCatalog builds the catalog from the built-in definitions
func NewDefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultDefinitions())
	if err != nil {
		// Built-in definitions are validated by tests; this cannot happen
		panic(err)
	}
	return c
}

// All returns every basket definition in id order
func (c *Catalog) All() []contracts.BasketDefinition {
	return c.baskets
}

// ByID returns the basket with the given id
func (c *Catalog) ByID(id int) (contracts.BasketDefinition, bool) {
	if id < 0 || id >= len(c.baskets) {
		return contracts.BasketDefinition{}, false
	}
	return c.baskets[id], true
}

// Size returns the number of baskets
func (c *Catalog) Size() int {
	return len(c.baskets)
}

// MidBasketID returns the middle (medium-risk) basket id, used as the
// safe default when a recommendation cannot be trusted
func (c *Catalog) MidBasketID() int {
	return len(c.baskets) / 2
}

// ValidID reports whether id addresses a basket in this catalog
func (c *Catalog) ValidID(id int) bool {
	return id >= 0 && id < len(c.baskets)
}
