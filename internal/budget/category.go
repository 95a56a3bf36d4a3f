package budget

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Category is a spending category with an optional monthly budget limit.
type Category struct {
	Syncable
	Name         string
	Icon         string
	Color        string
	MonthlyLimit decimal.Decimal
}

// NewCategory creates a category with fresh sync metadata.
func NewCategory(name, icon, color string, limit decimal.Decimal) *Category {
	return &Category{
		Syncable:     NewSyncable(),
		Name:         name,
		Icon:         icon,
		Color:        color,
		MonthlyLimit: limit,
	}
}

// Validate checks required fields.
func (c *Category) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("category id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("category name is required")
	}
	if c.MonthlyLimit.IsNegative() {
		return fmt.Errorf("monthly limit cannot be negative")
	}
	return nil
}

// Fields returns the category as a flat document, id excluded.
func (c *Category) Fields() map[string]any {
	f := c.syncFields()
	f["name"] = c.Name
	f["icon"] = c.Icon
	f["color"] = c.Color
	f["monthly_limit"] = c.MonthlyLimit.String()
	return f
}

// CategoryFromFields reconstructs a category from a document.
func CategoryFromFields(id string, f map[string]any) (*Category, error) {
	c := &Category{Syncable: syncableFromFields(id, f)}
	c.Name, _ = StringField(f, "name")
	c.Icon, _ = StringField(f, "icon")
	c.Color, _ = StringField(f, "color")
	if d, ok := DecimalField(f, "monthly_limit"); ok {
		c.MonthlyLimit = d
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
