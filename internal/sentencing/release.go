package sentencing

import "strings"

// seriousProvisionMarkers route long determinate terms to two-thirds
// release when they appear in the provision or offence name.
var seriousProvisionMarkers = []string{
	"manslaughter",
	"soliciting to commit murder",
	"grievous bodily harm with intent",
	"wounding with intent",
	"gbh with intent",
}

// fortyPercentExclusions remove an offence from the forty-percent release
// regime when any marker appears in its provision.
var fortyPercentExclusions = []string{
	"serious crime act 2015 s.76",
	"serious crime act 2015 s.75a",
	"sentencing act 2020 s.363",
	"family law act 1996 s.42a",
	"domestic abuse act 2021 s.39",
	"national security act",
	"official secrets act",
}

const twoThirds = 2.0 / 3.0

// IsFortyPercentRegime reports whether the offence and term fall under the
// forty-percent release regime. All matches are case-folded substrings.
func IsFortyPercentRegime(offence *OffenceRecord, termMonths float64) bool {
	if termMonths > 48 && offence.SpecifiedViolent {
		return false
	}

	if strings.Contains(strings.ToLower(offence.OffenceCategory), "sexual offence") {
		return false
	}

	provision := strings.ToLower(offence.Provision)
	if strings.Contains(provision, "protection from harassment") && strings.Contains(provision, "stalking") {
		return false
	}

	for _, marker := range fortyPercentExclusions {
		if strings.Contains(provision, marker) {
			return false
		}
	}

	return true
}

// DecideReleaseFraction selects the release fraction for the post-plea term.
// The branch order is significant: overlapping regimes resolve to the first
// match. When ReplicateACEReleaseBug is set (the default), the final
// forty-percent/halfway branch deliberately swaps 0.4 and 0.5 to stay
// bug-for-bug compatible with the upstream sentenceACE engine.
func DecideReleaseFraction(in *CalculationInput, postPleaTermMonths *float64) ReleaseDecision {
	offence := &in.Offence

	switch in.SentenceType {
	case SentenceMandatoryLife, SentenceDiscretionaryLife:
		return ReleaseDecision{nil, "Life sentence: release not represented as determinate fraction"}
	case SentenceCommunityOrder, SentenceYouthRehabilitationOrder, SentenceFine, SentenceConditionalDischarge:
		return ReleaseDecision{nil, "Non-custodial sentence"}
	case SentenceSuspendedOrder:
		return ReleaseDecision{nil, "Suspended sentence: no immediate custody term"}
	}

	if postPleaTermMonths == nil {
		return ReleaseDecision{nil, "No custodial term provided"}
	}

	switch in.SentenceType {
	case SentenceExtended, SentenceSpecialCustodial:
		return ReleaseDecision{Float(twoThirds), "Extended/special custodial release at two-thirds"}
	}

	if !in.SentenceType.Custodial() {
		return ReleaseDecision{nil, "Sentence type not treated as custodial"}
	}

	term := *postPleaTermMonths
	lifeMax := offence.HasLifeMaximum()

	if term >= 84 && lifeMax && (offence.SpecifiedSexual || offence.SpecifiedViolent) {
		return ReleaseDecision{Float(twoThirds), "Term >= 84m + life max + specified offence"}
	}

	if offence.Schedule19ZA || in.TerrorismFlag {
		return ReleaseDecision{Float(twoThirds), "Schedule 19ZA / terrorism route"}
	}

	if term >= 48 {
		if lifeMax && offence.SpecifiedSexual {
			return ReleaseDecision{Float(twoThirds), "Sexual offence with life max and term >= 48m"}
		}
		provisionOrName := strings.ToLower(offence.Provision + " " + offence.CanonicalName)
		for _, marker := range seriousProvisionMarkers {
			if strings.Contains(provisionOrName, marker) {
				return ReleaseDecision{Float(twoThirds), "Specified serious offence marker with term >= 48m"}
			}
		}
	}

	fortyPercent := IsFortyPercentRegime(offence, term)
	if in.ReplicateACEReleaseBug {
		if fortyPercent {
			return ReleaseDecision{Float(0.5), "Replicating sentenceACE inconsistency for forty-percent regime"}
		}
		return ReleaseDecision{Float(0.4), "Replicating sentenceACE inconsistency for non-forty-percent regime"}
	}

	if fortyPercent {
		return ReleaseDecision{Float(0.4), "Forty-percent regime"}
	}
	return ReleaseDecision{Float(0.5), "Halfway release regime"}
}
