// Package heuristic estimates compatibility for tool pairs nobody has
// curated and fills the gaps in the edge table with unverified edges.
package heuristic

import (
	"math"
	"strings"

	"github.com/julianshen/stackharmony/internal/catalog"
)

// Score adjustments applied by Estimate.
const (
	base                 = 50
	perSharedFramework   = 5
	maxFrameworkBonus    = 15
	perSharedLanguage    = 3
	maxLanguageBonus     = 10
	nativeMentionBonus   = 15
	verifiedMentionBonus = 25
	sameCategoryPenalty  = 15
	maturityWeight       = 2
)

// Estimate scores how well a and b are likely to work together, 0..100.
//
// Shared frameworks and languages raise the score, as does either tool
// listing the other among its integrations. Tools in the same category
// usually compete, so they are pushed down. Mature pairs drift up and
// immature ones down.
func Estimate(a, b catalog.Tool) int {
	score := base

	score += min(overlap(a.Frameworks, b.Frameworks)*perSharedFramework, maxFrameworkBonus)
	score += min(overlap(a.Languages, b.Languages)*perSharedLanguage, maxLanguageBonus)

	switch {
	case mentions(a.VerifiedIntegrations, b.Name) || mentions(b.VerifiedIntegrations, a.Name):
		score += verifiedMentionBonus
	case mentions(a.NativeIntegrations, b.Name) || mentions(b.NativeIntegrations, a.Name):
		score += nativeMentionBonus
	}

	if a.CategoryID == b.CategoryID {
		score -= sameCategoryPenalty
	}

	avg := (a.MaturityScore + b.MaturityScore) / 2
	if avg > 0 {
		score += int(math.Round(avg-5)) * maturityWeight
	}

	return max(catalog.MinScore, min(catalog.MaxScore, score))
}

// overlap counts case-insensitive values present in both lists.
func overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	n := 0
	seen := make(map[string]struct{}, len(b))
	for _, v := range b {
		k := strings.ToLower(strings.TrimSpace(v))
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := set[k]; ok && k != "" {
			n++
		}
	}
	return n
}

func mentions(list []string, name string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), name) {
			return true
		}
	}
	return false
}
