package invoice

import "fmt"

// Labels holds the fixed wording of an invoice in one language.
type Labels struct {
	Title     string // format: order number, order date
	Supplier  string
	Buyer     string
	Warehouse string
	Columns   [5]string
	Total     string // format: amount
	Currency  string // appended to the total, with a leading space when set
}

var labelSets = map[string]Labels{
	"en": {
		Title:     "Invoice No. %s of %s",
		Supplier:  "Supplier: %s",
		Buyer:     "Buyer: %s",
		Warehouse: "Warehouse: %s",
		Columns:   [5]string{"No.", "Item", "Price", "Qty", "Amount"},
		Total:     "Total: %s",
	},
	"ru": {
		Title:     "Расходная накладная № %s от %s",
		Supplier:  "Поставщик: %s",
		Buyer:     "Покупатель: %s",
		Warehouse: "Склад: %s",
		Columns:   [5]string{"№", "Наименование", "Цена", "Кол-во", "Сумма"},
		Total:     "Итого: %s",
		Currency:  "₽",
	},
}

// DefaultLanguage is used when no language is given.
const DefaultLanguage = "en"

// LabelsFor returns the label set for lang ("en" when empty).
func LabelsFor(lang string) (Labels, error) {
	if lang == "" {
		lang = DefaultLanguage
	}
	l, ok := labelSets[lang]
	if !ok {
		return Labels{}, fmt.Errorf("unsupported invoice language %q", lang)
	}
	return l, nil
}

func (l Labels) totalLine(amount string) string {
	s := fmt.Sprintf(l.Total, amount)
	if l.Currency != "" {
		s += " " + l.Currency
	}
	return s
}
