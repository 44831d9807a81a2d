package quote

import "math"

// MarkupRule is the platform margin added to a provider's raw price. Most
// providers carry a flat fee; when Percent is set it takes precedence and the
// margin is a percentage of the raw price instead.
type MarkupRule struct {
	Flat    int64
	Percent float64
}

// Apply returns raw plus the markup, in minor units. Given the same raw
// price and rule the result is always identical.
func (r MarkupRule) Apply(raw int64) int64 {
	if r.Percent > 0 {
		return raw + int64(math.Round(float64(raw)*r.Percent/100))
	}
	return raw + r.Flat
}

// Margin returns only the markup portion for a raw price.
func (r MarkupRule) Margin(raw int64) int64 {
	return r.Apply(raw) - raw
}
