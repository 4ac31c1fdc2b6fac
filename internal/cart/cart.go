// Package cart holds the line items of the sale being built.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cajadual/backend/internal/domain"
)

// Cart is not safe for concurrent use; the checkout register guards it.
type Cart struct {
	lines []domain.CartLine
}

func New() *Cart {
	return &Cart{}
}

// AddOrIncrement appends a line for product or, when a line with the same
// code exists, increases its quantity. The product is snapshotted.
func (c *Cart) AddOrIncrement(product domain.Product, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return fmt.Errorf("%w: quantity must be greater than zero, got %s", domain.ErrInvalidQuantity, qty.String())
	}
	if product.Code == "" {
		return fmt.Errorf("%w: product code is required", domain.ErrInvalidProduct)
	}
	for i := range c.lines {
		if c.lines[i].Product.Code == product.Code {
			c.lines[i].Quantity = c.lines[i].Quantity.Add(qty)
			return nil
		}
	}
	c.lines = append(c.lines, domain.CartLine{Product: product, Quantity: qty})
	return nil
}

func (c *Cart) SetQuantity(index int, qty decimal.Decimal) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	if !qty.IsPositive() {
		return fmt.Errorf("%w: quantity must be greater than zero, got %s", domain.ErrInvalidQuantity, qty.String())
	}
	c.lines[index].Quantity = qty
	return nil
}

func (c *Cart) Remove(index int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Total is the sum of sale price times quantity, in USD.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) checkIndex(index int) error {
	if index < 0 || index >= len(c.lines) {
		return fmt.Errorf("%w: cart line %d does not exist (cart has %d lines)", domain.ErrIndexOutOfRange, index, len(c.lines))
	}
	return nil
}
