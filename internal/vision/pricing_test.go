package vision

import (
	"math"
	"testing"
)

func TestParsePricing(t *testing.T) {
	raw := `PRODUCT_NAME: Wireless Headphones X200
ORIGINAL_PRICE: $199.99
SALE_PRICE: $149.99
CURRENCY: USD
DISCOUNT_PERCENT: 25%`

	p := ParsePricing(raw)
	if p.ProductName != "Wireless Headphones X200" {
		t.Errorf("ProductName = %q", p.ProductName)
	}
	if p.OriginalPrice != "$199.99" {
		t.Errorf("OriginalPrice = %q", p.OriginalPrice)
	}
	if p.SalePrice != "$149.99" {
		t.Errorf("SalePrice = %q", p.SalePrice)
	}
	if p.Currency != "USD" {
		t.Errorf("Currency = %q", p.Currency)
	}
	if p.DiscountPercent != "25%" {
		t.Errorf("DiscountPercent = %q", p.DiscountPercent)
	}
}

func TestParsePricingNotFound(t *testing.T) {
	raw := `PRODUCT_NAME: Some Product
ORIGINAL_PRICE: Not found
SALE_PRICE: Not found
CURRENCY: Not found
DISCOUNT_PERCENT: Not found`

	p := ParsePricing(raw)
	if p.OriginalPrice != "" || p.SalePrice != "" || p.Currency != "" {
		t.Errorf("Expected empty fields for 'Not found', got %+v", p)
	}
	if !p.HasData() {
		t.Error("Expected HasData true with product name present")
	}
}

func TestParsePricingIgnoresNoise(t *testing.T) {
	raw := "Here is the analysis:\nPRODUCT_NAME: Gadget\nsome commentary\nSALE_PRICE: €9,99"
	p := ParsePricing(raw)
	if p.ProductName != "Gadget" {
		t.Errorf("ProductName = %q", p.ProductName)
	}
	if p.SalePrice != "€9,99" {
		t.Errorf("SalePrice = %q", p.SalePrice)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$199.99", 199.99, true},
		{"1,299.95 USD", 1299.95, true},
		{"EUR 49", 49, true},
		{"149.", 149, true},
		{"free", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParsePrice(tt.in)
		if ok != tt.ok || math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParsePrice(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFinalPrice(t *testing.T) {
	tests := []struct {
		name string
		p    Pricing
		want float64
		ok   bool
	}{
		{
			name: "sale price wins",
			p:    Pricing{OriginalPrice: "$200", SalePrice: "$150"},
			want: 150,
			ok:   true,
		},
		{
			name: "discount applied to original",
			p:    Pricing{OriginalPrice: "$200", DiscountPercent: "25%"},
			want: 150,
			ok:   true,
		},
		{
			name: "original only",
			p:    Pricing{OriginalPrice: "$80"},
			want: 80,
			ok:   true,
		},
		{
			name: "nothing extracted",
			p:    Pricing{ProductName: "X"},
			ok:   false,
		},
		{
			name: "invalid discount ignored",
			p:    Pricing{OriginalPrice: "$100", DiscountPercent: "250%"},
			want: 100,
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.p.FinalPrice()
			if ok != tt.ok {
				t.Fatalf("FinalPrice() ok = %v, want %v", ok, tt.ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("FinalPrice() = %v, want %v", got, tt.want)
			}
		})
	}
}
