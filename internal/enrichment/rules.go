package enrichment

import (
	"fmt"
	"strings"

	"guild-scout/internal/domain"
)

// progressionRule requires a raid achievement on at least one of the
// configured tiers. Any configured tier satisfies the rule. Without a
// raid profile there is no evidence of progression, so the rule fails
// closed.
func progressionRule(tiers []string, requireCuttingEdge bool) func(domain.Player, *domain.Enrichment) domain.Verdict {
	return func(_ domain.Player, e *domain.Enrichment) domain.Verdict {
		if len(tiers) == 0 {
			return domain.Accept()
		}
		if e.Raid == nil {
			return domain.Reject(fmt.Sprintf("no raid profile data (%s)", e.RaidErr))
		}

		for _, slug := range tiers {
			curve := e.Raid.CurveFor(slug)
			if curve == nil {
				continue
			}
			if curve.CuttingEdge != nil {
				return domain.Accept()
			}
			if !requireCuttingEdge && curve.AheadOfCurve != nil {
				return domain.Accept()
			}
		}

		achievement := "AOTC or Cutting Edge"
		if requireCuttingEdge {
			achievement = "Cutting Edge"
		}
		return domain.Reject(fmt.Sprintf("no %s on any eligible tier (%s)",
			achievement, strings.Join(tiers, ", ")))
	}
}

// languageRule requires the configured language token to appear in
// the candidate's declared languages. No declared language means the
// rule does not apply.
func languageRule(required string) func(domain.Player, *domain.Enrichment) domain.Verdict {
	return func(_ domain.Player, e *domain.Enrichment) domain.Verdict {
		if required == "" {
			return domain.Accept()
		}
		if e.Detail == nil || e.Detail.Languages == "" {
			// Absence of the field means the rule does not apply.
			return domain.Accept()
		}
		if strings.Contains(strings.ToLower(e.Detail.Languages), strings.ToLower(required)) {
			return domain.Accept()
		}
		return domain.Reject(fmt.Sprintf("declared languages %q do not include %q",
			e.Detail.Languages, required))
	}
}
