package quote

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/parceldeck/broker/internal/storage"
	"github.com/parceldeck/broker/pkg/carrier"
)

// ProviderQuote is the normalized, caller-facing offer from one provider.
// It carries only the final marked-up price; internal cost breakdowns never
// appear here.
type ProviderQuote struct {
	Carrier           carrier.Key          `json:"carrier"`
	PartnerID         uint                 `json:"partner_id"`
	PriceFinal        carrier.Money        `json:"price"`
	EstimatedDelivery string               `json:"estimated_delivery"`
	ServiceLevel      carrier.ServiceLevel `json:"service_level"`
	Meta              map[string]string    `json:"meta,omitempty"`
}

// EssentialMetaKeys are the only provider meta fields the orchestrator needs
// later; everything else is stripped during normalization. The orchestrator
// copies the same keys from its fresh quote onto the outgoing order request.
var EssentialMetaKeys = []string{"service_id", "rate_id", "pickup_address_id"}

/// Normalize converts a raw provider quote into the unified shape: markup
// applied, ETA standardized, service type mapped to the four-way enum, meta
// stripped to essentials. It is a pure function of its inputs.
func Normalize(q *carrier.Quote, partner storage.Partner, rule MarkupRule) ProviderQuote {
	out := ProviderQuote{
		Carrier:   q.Carrier,
		PartnerID: partner.ID,
		PriceFinal: carrier.Money{
			Amount:   rule.Apply(q.Price.Amount),
			Currency: q.Price.Currency,
		},
		EstimatedDelivery: NormalizeETA(q.RawETA),
		ServiceLevel:      NormalizeServiceLevel(q.RawServiceType),
	}
	for _, key := range EssentialMetaKeys {
		if v, ok := q.Meta[key]; ok {
			if out.Meta == nil {
				out.Meta = make(map[string]string)
			}
			out.Meta[key] = v
		}
	}
	return out
}

var etaNumbers = regexp.MustCompile(`\d+`)

// NormalizeETA maps a provider's free-text delivery estimate onto the
// standard day/hour/minute vocabulary (e.g. "2-3 business days" -> "2-3 days",
// "Within 45 MINS" -> "45 minutes"). Unrecognized input passes through
// lowercased so the caller still sees something.
func NormalizeETA(raw string) string {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return ""
	}

	var unit string
	switch {
	case strings.Contains(text, "min"):
		unit = "minute"
	case strings.Contains(text, "hour"), strings.Contains(text, "hr"):
		unit = "hour"
	case strings.Contains(text, "day"):
		unit = "day"
	case strings.Contains(text, "week"):
		// Normalize weeks into days.
		unit = "week"
	default:
		return text
	}

	nums := etaNumbers.FindAllString(text, 2)
	if len(nums) == 0 {
		if strings.Contains(text, "same day") || strings.Contains(text, "sameday") {
			return "1 day"
		}
		return text
	}

	if unit == "week" {
		unit = "day"
		for i, n := range nums {
			nums[i] = fmt.Sprintf("%d", atoiSafe(n)*7)
		}
	}

	if len(nums) == 2 {
		return fmt.Sprintf("%s-%s %ss", nums[0], nums[1], unit)
	}
	if nums[0] == "1" {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%s %ss", nums[0], unit)
}

func atoiSafe(s string) int {
	n := 0
	for _, ch := range s {
		n = n*10 + int(ch-'0')
	}
	return n
}

// NormalizeServiceLevel maps a provider's raw service type onto the four-way
// service-level enum.
func NormalizeServiceLevel(raw string) carrier.ServiceLevel {
	text := strings.ToLower(raw)
	switch {
	case strings.Contains(text, "same"), strings.Contains(text, "instant"),
		strings.Contains(text, "on-demand"), strings.Contains(text, "on_demand"),
		strings.Contains(text, "ondemand"):
		return carrier.ServiceSameday
	case strings.Contains(text, "express"), strings.Contains(text, "priority"),
		strings.Contains(text, "overnight"), strings.Contains(text, "next day"):
		return carrier.ServiceExpress
	case strings.Contains(text, "econom"), strings.Contains(text, "saver"),
		strings.Contains(text, "deferred"):
		return carrier.ServiceEconomy
	default:
		return carrier.ServiceStandard
	}
}
