package internal

import (
	"fmt"
	"sort"
	"strings"
)

// Product is a purchasable subscription plan
type Product struct {
	ID          string // checkout id: "bas", "pro", "elite"
	Plan        Plan
	Name        string
	PriceUSD    int // monthly
	Description string
}

var products = []Product{
	{ID: "bas", Plan: PlanBasic, Name: "Synapse Basic", PriceUSD: 9, Description: "Everyday access to hosted models"},
	{ID: "pro", Plan: PlanPro, Name: "Synapse Pro", PriceUSD: 25, Description: "Priority access, web search and image input"},
	{ID: "elite", Plan: PlanElite, Name: "Synapse Elite", PriceUSD: 49, Description: "Every provider with the highest limits"},
}

// Products returns the plan catalogue ordered by price
func Products() []Product {
	out := make([]Product, len(products))
	copy(out, products)
	sort.Slice(out, func(i, j int) bool { return out[i].PriceUSD < out[j].PriceUSD })
	return out
}

// LookupProduct finds a product by checkout id or plan name
func LookupProduct(id string) (Product, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	if key == "basic" {
		key = "bas"
	}
	for _, p := range products {
		if p.ID == key {
			return p, nil
		}
	}
	return Product{}, &ValidationError{Field: "plan", Reason: fmt.Sprintf("unknown product %q (supported: bas, pro, elite)", id)}
}

// PriceIDs maps product ids to payment-provider price ids
type PriceIDs struct {
	Basic string `yaml:"basic"`
	Pro   string `yaml:"pro"`
	Elite string `yaml:"elite"`
}

// For returns the price id configured for a product
func (p PriceIDs) For(productID string) string {
	switch productID {
	case "bas":
		return p.Basic
	case "pro":
		return p.Pro
	case "elite":
		return p.Elite
	default:
		return ""
	}
}
