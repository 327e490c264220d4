// Package membership derives membership tiers from plan names and computes
// membership periods.
package membership

import (
	"fmt"
	"strings"
	"time"
)

type Tier string

const (
	Free         Tier = "free"
	Gyani        Tier = "GYANI"
	Pragyani     Tier = "PRAGYANI"
	PragyaniPlus Tier = "PRAGYANIPLUS"
)

// Tiers lists every tier, lowest first.
var Tiers = []Tier{Free, Gyani, Pragyani, PragyaniPlus}

// tierRules are tested in order. "pragyani" contains "gyani", so the longer
// names must come first for each plan to land on its own tier.
var tierRules = []struct {
	needle string
	tier   Tier
}{
	{"pragyani+", PragyaniPlus},
	{"pragyani", Pragyani},
	{"gyani", Gyani},
}

// DeriveTier maps a plan name to a tier by case-insensitive substring match.
// Unknown plans are Free.
func DeriveTier(plan string) Tier {
	p := strings.ToLower(plan)
	for _, r := range tierRules {
		if strings.Contains(p, r.needle) {
			return r.tier
		}
	}
	return Free
}

// ParseTier accepts a stored tier value, case-insensitively.
func ParseTier(s string) (Tier, error) {
	for _, t := range Tiers {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	if strings.EqualFold(s, "PRAGYANI_PLUS") {
		return PragyaniPlus, nil
	}
	return "", fmt.Errorf("unknown membership tier %q", s)
}

type Billing string

const (
	Monthly Billing = "monthly"
	Yearly  Billing = "yearly"
)

func ParseBilling(s string) (Billing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month":
		return Monthly, nil
	case "yearly", "year", "annual":
		return Yearly, nil
	}
	return "", fmt.Errorf("unknown billing cycle %q", s)
}

// EndDate computes when a membership starting at start ends. A positive
// trialDays makes it a trial of that many days regardless of billing.
func EndDate(start time.Time, billing Billing, trialDays int) time.Time {
	if trialDays > 0 {
		return start.AddDate(0, 0, trialDays)
	}
	if billing == Yearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

// Period is a derived membership, ready to be written to the CMS.
type Period struct {
	Tier    Tier      `json:"membership"`
	Start   time.Time `json:"membershipStartDate"`
	End     time.Time `json:"membershipEndDate"`
	IsTrial bool      `json:"isTrial"`
}

// NewPeriod combines DeriveTier and EndDate.
func NewPeriod(plan string, billing Billing, trialDays int, start time.Time) Period {
	return Period{
		Tier:    DeriveTier(plan),
		Start:   start,
		End:     EndDate(start, billing, trialDays),
		IsTrial: trialDays > 0,
	}
}

// ApplyDiscount reduces a price in minor units by the tier's percentage from
// discounts. Percentages outside 0..100 are clamped.
func ApplyDiscount(price int64, tier Tier, discounts map[string]int) int64 {
	pct, ok := discounts[string(tier)]
	if !ok || pct <= 0 {
		return price
	}
	if pct > 100 {
		pct = 100
	}
	return price - price*int64(pct)/100
}

// DateLayout is how membership dates are stored and sent to the CMS.
const DateLayout = "2006-01-02"

// Effective is the tier in force at now. The end date is inclusive; once it
// has passed the member is Free again. An empty or unparseable end date
// never expires.
func Effective(tier Tier, end string, now time.Time) Tier {
	if tier == Free || end == "" {
		return tier
	}
	last, err := time.Parse(DateLayout, end)
	if err != nil {
		return tier
	}
	if !now.UTC().Before(last.AddDate(0, 0, 1)) {
		return Free
	}
	return tier
}
