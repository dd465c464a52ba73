package vision

import (
	"regexp"
	"strconv"
	"strings"
)

// Pricing is the structured extraction result. String fields keep the
// model's verbatim answers; numeric accessors parse them on demand.
type Pricing struct {
	ProductName     string `json:"productName,omitempty"`
	OriginalPrice   string `json:"originalPrice,omitempty"`
	SalePrice       string `json:"salePrice,omitempty"`
	Currency        string `json:"currency,omitempty"`
	DiscountPercent string `json:"discountPercent,omitempty"`
}

// priceRe matches the numeric part of a price string ("1,299.95").
var priceRe = regexp.MustCompile(`[\d,]+\.?\d*`)

// percentRe matches the numeric part of a percentage ("25%", "-25 %").
var percentRe = regexp.MustCompile(`\d+\.?\d*`)

// fieldPrefixes maps answer-format labels to Pricing field setters.
var fieldPrefixes = []struct {
	prefix string
	set    func(*Pricing, string)
}{
	{"PRODUCT_NAME:", func(p *Pricing, v string) { p.ProductName = v }},
	{"ORIGINAL_PRICE:", func(p *Pricing, v string) { p.OriginalPrice = v }},
	{"SALE_PRICE:", func(p *Pricing, v string) { p.SalePrice = v }},
	{"CURRENCY:", func(p *Pricing, v string) { p.Currency = v }},
	{"DISCOUNT_PERCENT:", func(p *Pricing, v string) { p.DiscountPercent = v }},
}

// ParsePricing decodes the model's line-oriented answer. Unknown lines are
// ignored and "Not found" values are treated as absent.
func ParsePricing(raw string) *Pricing {
	p := &Pricing{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		for _, f := range fieldPrefixes {
			if !strings.HasPrefix(line, f.prefix) {
				continue
			}
			value := strings.TrimSpace(strings.TrimPrefix(line, f.prefix))
			if value == "" || strings.EqualFold(value, "not found") || strings.EqualFold(value, "n/a") {
				break
			}
			f.set(p, value)
			break
		}
	}
	return p
}

// ParsePrice extracts the numeric value from a price string. Returns false
// when no number is present.
func ParsePrice(s string) (float64, bool) {
	m := priceRe.FindString(s)
	if m == "" {
		return 0, false
	}
	m = strings.ReplaceAll(m, ",", "")
	m = strings.TrimSuffix(m, ".")
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParsePercent extracts the numeric percentage from a string like "-25%".
func ParsePercent(s string) (float64, bool) {
	m := percentRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

// FinalPrice computes the effective price: the sale price when present,
// otherwise the original discounted by the stated percentage, otherwise the
// original as-is. Returns false when no price was extracted at all.
func (p *Pricing) FinalPrice() (float64, bool) {
	if sale, ok := ParsePrice(p.SalePrice); ok {
		return sale, true
	}
	original, ok := ParsePrice(p.OriginalPrice)
	if !ok {
		return 0, false
	}
	if pct, ok := ParsePercent(p.DiscountPercent); ok {
		return original * (1 - pct/100), true
	}
	return original, true
}

// HasData reports whether the extraction produced anything usable.
func (p *Pricing) HasData() bool {
	return p.ProductName != "" || p.OriginalPrice != "" || p.SalePrice != ""
}
