package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Buyer is the customer an order belongs to.
type Buyer struct {
	Name string `json:"name"`
}

// Item is one ordered product.
type Item struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	BuyQuantity int     `json:"buyQuantity"`
}

// LineTotal is price times quantity.
func (i Item) LineTotal() float64 {
	return i.Price * float64(i.BuyQuantity)
}

// Order is an order record as returned by GET /orders/{id}.
type Order struct {
	OrderNumber string  `json:"orderNumber"`
	OrderDate   string  `json:"orderDate"`
	User        Buyer   `json:"user"`
	Items       []Item  `json:"items"`
	TotalPrice  float64 `json:"totalPrice"`
}

// UnmarshalJSON accepts orderNumber as either a JSON number or a string.
func (o *Order) UnmarshalJSON(data []byte) error {
	type plain Order
	var aux struct {
		plain
		OrderNumber json.RawMessage `json:"orderNumber"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*o = Order(aux.plain)
	o.OrderNumber = ""
	if len(aux.OrderNumber) == 0 || string(aux.OrderNumber) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.OrderNumber, &s); err == nil {
		o.OrderNumber = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(aux.OrderNumber, &n); err != nil {
		return fmt.Errorf("invalid orderNumber %s", aux.OrderNumber)
	}
	o.OrderNumber = n.String()
	return nil
}

// Validate checks the fields the layout depends on.
func (o *Order) Validate() error {
	if o == nil {
		return errors.New("order is nil")
	}
	if o.OrderNumber == "" {
		return errors.New("order number is empty")
	}
	for i, it := range o.Items {
		if it.BuyQuantity < 0 {
			return fmt.Errorf("item %d (%s): negative quantity %d", i+1, it.Name, it.BuyQuantity)
		}
		if it.Price < 0 {
			return fmt.Errorf("item %d (%s): negative price %.2f", i+1, it.Name, it.Price)
		}
	}
	return nil
}

// DecodeOrder reads an order record from r.
func DecodeOrder(r io.Reader) (*Order, error) {
	var o Order
	if err := json.NewDecoder(r).Decode(&o); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &o, nil
}

// LoadOrderFile reads an order record from a JSON file.
func LoadOrderFile(path string) (*Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open order file: %w", err)
	}
	defer f.Close()
	return DecodeOrder(f)
}
