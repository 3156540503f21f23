package models

import (
	"fmt"
	"time"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPlus Plan = "plus"
	PlanPro  Plan = "pro"
)

// ProCredits is the sentinel balance stored for pro users, who are never charged.
const ProCredits = 999999

const (
	// CreditRefillInterval is the minimum gap between two credit refills.
	CreditRefillInterval = 48 * time.Hour
	// PlanDuration is how long an assigned paid plan lasts.
	PlanDuration = 30 * 24 * time.Hour
)

// Allotment returns the credit balance a plan is refilled to.
func (p Plan) Allotment() int {
	switch p {
	case PlanPro:
		return ProCredits
	case PlanPlus:
		return 20
	default:
		return 5
	}
}

// Paid reports whether the plan expires and must be bought.
func (p Plan) Paid() bool {
	return p == PlanPlus || p == PlanPro
}

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPlus, PlanPro:
		return true
	}
	return false
}

// ParsePlan converts s into a Plan.
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown plan %q", s)
	}
	return p, nil
}

// Badge is a cosmetic marker shown next to a username.
type Badge string

const (
	BadgeNone     Badge = ""
	BadgeVerified Badge = "verified"
	BadgePlus     Badge = "plus"
	BadgePro      Badge = "pro"
	BadgeAdmin    Badge = "admin"
)

// Valid reports whether b is a known badge.
func (b Badge) Valid() bool {
	switch b {
	case BadgeNone, BadgeVerified, BadgePlus, BadgePro, BadgeAdmin:
		return true
	}
	return false
}

// PlanOffer describes a purchasable plan in the catalogue.
type PlanOffer struct {
	Plan       Plan     `json:"plan"`
	Credits    int      `json:"credits"`
	PriceEUR   int      `json:"price_eur"`
	PeriodDays int      `json:"period_days"`
	Features   []string `json:"features"`
}

// PlanCatalogue lists every plan in display order.
var PlanCatalogue = []PlanOffer{
	{
		Plan:     PlanFree,
		Credits:  PlanFree.Allotment(),
		Features: []string{"5 new chats every 48h", "Posts, likes and comments"},
	},
	{
		Plan:       PlanPlus,
		Credits:    PlanPlus.Allotment(),
		PriceEUR:   5,
		PeriodDays: 30,
		Features:   []string{"20 new chats every 48h", "Plus badge"},
	},
	{
		Plan:       PlanPro,
		Credits:    PlanPro.Allotment(),
		PriceEUR:   25,
		PeriodDays: 30,
		Features:   []string{"Unlimited new chats", "Pro badge"},
	},
}

// OfferFor returns the catalogue entry for p.
func OfferFor(p Plan) (PlanOffer, bool) {
	for _, o := range PlanCatalogue {
		if o.Plan == p {
			return o, true
		}
	}
	return PlanOffer{}, false
}

// Categories are the interest tags users and posts may carry.
var Categories = []string{
	"Tech", "Gaming", "Music", "Art", "Travel",
	"Sports", "Food", "Fashion", "Science", "Fitness",
	"Books", "Film", "Photography", "Politics", "Business",
}

// IsCategory reports whether name is a recognised category.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}
