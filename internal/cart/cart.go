package cart

// Item is one line of a shopper's cart. Carts hold at most one item per
// variant; adding the same variant again merges quantities.
type Item struct {
	ProductID      string `json:"productId"`
	VariantID      string `json:"variantId"`
	Name           string `json:"name"`
	Size           string `json:"size,omitempty"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Quantity       int    `json:"quantity"`
	ImageURL       string `json:"imageUrl,omitempty"`
}

// Cart is a shopper's current selection. It is a plain value: persistence is
// the Store's job, and every mutation is expected to round-trip load →
// mutate → save.
type Cart struct {
	Items []Item `json:"items"`
}

// Add merges an item into the cart. If the variant is already present its
// quantity is increased; otherwise the item is appended.
func (c *Cart) Add(item Item) {
	for i := range c.Items {
		if c.Items[i].VariantID == item.VariantID {
			c.Items[i].Quantity += item.Quantity
			return
		}
	}
	c.Items = append(c.Items, item)
}

// SetQuantity updates the quantity for a variant. A quantity of zero or less
// removes the line rather than keeping a zero-quantity record.
func (c *Cart) SetQuantity(variantID string, quantity int) {
	if quantity <= 0 {
		c.Remove(variantID)
		return
	}
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			c.Items[i].Quantity = quantity
			return
		}
	}
}

// Remove deletes the line for a variant, if present.
func (c *Cart) Remove(variantID string) {
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// Empty reports whether the cart has no items.
func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// SubtotalCents is the sum of quantity times unit price across all lines,
// in integer cents.
func (c *Cart) SubtotalCents() int64 {
	var subtotal int64
	for _, item := range c.Items {
		subtotal += int64(item.Quantity) * item.UnitPriceCents
	}
	return subtotal
}
