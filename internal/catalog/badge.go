// Package catalog holds the equipment catalog view logic: availability
// badges, the admin-side filter and the debounced search.
package catalog

import (
	"strings"

	"github.com/equiplend/frontend/internal/models"
)

type Availability string

const (
	OutOfStock Availability = "out of stock"
	LowStock   Availability = "low stock"
	Available  Availability = "available"
)

const lowStockRatio = 0.3

// Badge classifies stock for display only. It is out of stock exactly when
// available is zero.
func Badge(available, total int) Availability {
	if available <= 0 {
		return OutOfStock
	}
	if total > 0 && float64(available)/float64(total) < lowStockRatio {
		return LowStock
	}
	return Available
}

// Color is the badge colour used by the templates.
func (a Availability) Color() string {
	switch a {
	case OutOfStock:
		return "red"
	case LowStock:
		return "yellow"
	}
	return "green"
}

func ItemBadge(it models.EquipmentItem) Availability {
	return Badge(it.AvailableQuantity, it.TotalQuantity)
}

// Filter narrows an already fetched list by a case-insensitive text match on
// name or description and by exact category name. Empty arguments match all.
func Filter(items []models.EquipmentItem, text, category string) []models.EquipmentItem {
	text = strings.ToLower(strings.TrimSpace(text))
	category = strings.TrimSpace(category)
	out := make([]models.EquipmentItem, 0, len(items))
	for _, it := range items {
		if text != "" &&
			!strings.Contains(strings.ToLower(it.Name), text) &&
			!strings.Contains(strings.ToLower(it.Description), text) {
			continue
		}
		if category != "" && !strings.EqualFold(it.Category.Name, category) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Categories returns the distinct category names of items in first-seen
// order.
func Categories(items []models.EquipmentItem) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range items {
		n := it.Category.Name
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
