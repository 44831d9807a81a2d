package quote_test

import (
	"testing"

	"github.com/parceldeck/broker/internal/quote"
	"github.com/parceldeck/broker/internal/storage"
	"github.com/parceldeck/broker/pkg/carrier"
	"github.com/stretchr/testify/assert"
)

func TestMarkupRule_Apply(t *testing.T) {
	tests := []struct {
		name string
		rule quote.MarkupRule
		raw  int64
		want int64
	}{
		{"flat fee", quote.MarkupRule{Flat: 20000}, 150000, 170000},
		{"zero rule passes through", quote.MarkupRule{}, 150000, 150000},
		{"percent", quote.MarkupRule{Percent: 10}, 150000, 165000},
		{"percent rounds half up", quote.MarkupRule{Percent: 7.5}, 101, 109}, // 101 + round(7.575)
		{"percent wins over flat", quote.MarkupRule{Flat: 20000, Percent: 10}, 100000, 110000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Apply(tt.raw))
			// Same inputs always produce the same price.
			assert.Equal(t, tt.rule.Apply(tt.raw), tt.rule.Apply(tt.raw))
		})
	}
}

func TestMarkupRule_Margin(t *testing.T) {
	rule := quote.MarkupRule{Percent: 10}
	assert.Equal(t, int64(15000), rule.Margin(150000))
}

func TestNormalizeETA(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2-3 business days", "2-3 days"},
		{"Within 45 MINS", "45 minutes"},
		{"45 mins", "45 minutes"},
		{"1 day", "1 day"},
		{"24 hours", "24 hours"},
		{"next 2 hrs", "2 hours"},
		{"1 week", "7 days"},
		{"1-2 weeks", "7-14 days"},
		{"3 days", "3 days"},
		{"same day", "1 day"},
		{"", ""},
		{"whenever the rider is free", "whenever the rider is free"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, quote.NormalizeETA(tt.raw))
		})
	}
}

func TestNormalizeServiceLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want carrier.ServiceLevel
	}{
		{"EXPRESS_ON_DEMAND", carrier.ServiceSameday},
		{"Same Day", carrier.ServiceSameday},
		{"instant", carrier.ServiceSameday},
		{"EXPRESS WORLDWIDE", carrier.ServiceExpress},
		{"Priority Overnight", carrier.ServiceExpress},
		{"next day", carrier.ServiceExpress},
		{"Economy Select", carrier.ServiceEconomy},
		{"saver", carrier.ServiceEconomy},
		{"standard", carrier.ServiceStandard},
		{"ground", carrier.ServiceStandard},
		{"", carrier.ServiceStandard},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, quote.NormalizeServiceLevel(tt.raw))
		})
	}
}

func TestNormalize(t *testing.T) {
	raw := &carrier.Quote{
		Carrier:        carrier.KeyGlovo,
		Price:          carrier.Money{Amount: 185000, Currency: "NGN"},
		RawServiceType: "EXPRESS_ON_DEMAND",
		RawETA:         "45 mins",
		Meta: map[string]string{
			"rate_id":        "glv-quote-1",
			"internal_debug": "should be stripped",
		},
	}
	partner := storage.Partner{ID: 7, Key: "glovo", Active: true}
	rule := quote.MarkupRule{Flat: 20000}

	got := quote.Normalize(raw, partner, rule)

	assert.Equal(t, carrier.KeyGlovo, got.Carrier)
	assert.Equal(t, uint(7), got.PartnerID)
	assert.Equal(t, int64(205000), got.PriceFinal.Amount)
	assert.Equal(t, "NGN", got.PriceFinal.Currency)
	assert.Equal(t, "45 minutes", got.EstimatedDelivery)
	assert.Equal(t, carrier.ServiceSameday, got.ServiceLevel)
	assert.Equal(t, "glv-quote-1", got.Meta["rate_id"])
	assert.NotContains(t, got.Meta, "internal_debug")
}

func TestNormalize_Deterministic(t *testing.T) {
	raw := &carrier.Quote{
		Carrier: carrier.KeyDhl,
		Price:   carrier.Money{Amount: 8500000, Currency: "NGN"},
		RawETA:  "3-5 days",
	}
	partner := storage.Partner{ID: 2}
	rule := quote.MarkupRule{Percent: 10}

	first := quote.Normalize(raw, partner, rule)
	second := quote.Normalize(raw, partner, rule)
	assert.Equal(t, first, second)
}
