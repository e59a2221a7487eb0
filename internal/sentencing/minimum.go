package sentencing

import (
	"fmt"
	"strings"
	"time"
)

// guiltyPleaFloorFactor is the fixed statutory cap on the plea discount for
// minimum-sentence floors. It is deliberately not the plea-stage table: a
// qualifying guilty plea may reduce the floor to 80% and no further.
const guiltyPleaFloorFactor = 0.8

// Commencement dates for the firearms minimum codes. C4 has no effective
// threshold.
var firearmsCodeStarts = map[string]time.Time{
	"C1": date(2004, time.January, 22),
	"C2": date(2007, time.April, 6),
	"C3": date(2014, time.July, 14),
	"C4": date(1900, time.January, 1),
}

var (
	classATraffickingStart = date(1997, time.October, 1)
	weaponPossessionStart  = date(2015, time.July, 17)
)

func notTriggered(reason string) MinimumDecision {
	return MinimumDecision{Triggered: false, Reason: reason}
}

func triggeredFloor(pre float64, post *float64, reason string) MinimumDecision {
	return MinimumDecision{
		Triggered:       true,
		FloorPreMonths:  Float(pre),
		FloorPostMonths: post,
		Reason:          reason,
	}
}

// DecideMinimumSentence evaluates the statutory minimum-sentence regimes.
// Each code family carries its own date threshold, age gates and
// prior-conviction predicates; the offence's minimum code selects the
// family. The input override disapplies any minimum outright.
func DecideMinimumSentence(in *CalculationInput) MinimumDecision {
	if in.MinimumSentenceUnjustOrExceptional {
		return notTriggered("minimum disapplied by input override")
	}

	code := strings.ToUpper(strings.TrimSpace(in.Offence.MinimumSentenceCode))
	if code == "" {
		return MinimumDecision{Triggered: false}
	}

	adult := in.AgeAtSentence >= 18
	youth1617 := in.AgeAtSentence >= 16 && in.AgeAtSentence <= 17
	guilty := in.PleaStage != PleaNotGuilty

	// Post-plea floor for the adult codes that admit a plea reduction.
	guiltyPost := func(pre float64) *float64 {
		if guilty {
			return Float(round2(pre * guiltyPleaFloorFactor))
		}
		return Float(pre)
	}

	switch code {
	case "A":
		// Third domestic burglary, PCC(S)A 2000 s.111 lineage.
		if adult && in.PriorDomesticBurglaryCount >= 2 {
			return triggeredFloor(36, guiltyPost(36), "Domestic burglary minimum")
		}
		return notTriggered("Conditions for A not met")

	case "B":
		// Third Class A trafficking conviction.
		if adult && !in.OffenceDate.Before(classATraffickingStart) && in.PriorClassATraffickingCount >= 2 {
			return triggeredFloor(84, guiltyPost(84), "Class A trafficking minimum")
		}
		return notTriggered("Conditions for B not met")

	case "C1", "C2", "C3", "C4":
		// Firearms minimums admit no plea reduction: the post floor equals
		// the pre floor.
		if in.OffenceDate.Before(firearmsCodeStarts[code]) {
			return notTriggered("Firearms date threshold not met")
		}
		if adult {
			return triggeredFloor(60, Float(60), "Firearms adult minimum")
		}
		if youth1617 {
			return triggeredFloor(36, Float(36), "Firearms youth minimum")
		}
		return notTriggered("Under 16")

	case "D":
		// Repeat possession of a bladed article / offensive weapon.
		if in.OffenceDate.Before(weaponPossessionStart) {
			return notTriggered("Weapon possession date threshold not met")
		}
		if in.AgeAtOffence < 16 {
			return notTriggered("Under 16 at offence")
		}
		if !in.PriorRelevantWeaponConviction {
			return notTriggered("No qualifying prior conviction")
		}
		if in.AgeAtConviction >= 18 {
			return triggeredFloor(6, guiltyPost(6), "Weapon possession adult minimum")
		}
		if in.AgeAtConviction >= 16 && in.AgeAtConviction <= 17 {
			// Youth route sentences via a DTO; no post-plea floor applies.
			return triggeredFloor(4, nil, "Weapon possession youth DTO minimum")
		}
		return notTriggered("Under 16 at conviction")

	case "E":
		// Threatening with a weapon; no date threshold or prior requirement.
		if adult {
			return triggeredFloor(6, guiltyPost(6), "Threats with weapon adult minimum")
		}
		if youth1617 {
			return triggeredFloor(4, nil, "Threats with weapon youth DTO minimum")
		}
		return notTriggered("Under 16")
	}

	return notTriggered(fmt.Sprintf("Unsupported minimum code %s", code))
}

// ApplyMinimumFloor lifts the pre- and post-plea terms up to any triggered
// floor, emitting one trace line per lift. Terms already at or above their
// floor pass through untouched.
func ApplyMinimumFloor(pre, post *float64, decision MinimumDecision) (*float64, *float64, []string) {
	var trace []string
	if !decision.Triggered {
		return pre, post, trace
	}

	if decision.FloorPreMonths != nil {
		floor := *decision.FloorPreMonths
		switch {
		case pre == nil:
			pre = Float(floor)
			trace = append(trace, fmt.Sprintf("Pre-plea term set to minimum floor %s months", fmtMonths(floor)))
		case *pre < floor:
			trace = append(trace, fmt.Sprintf("Pre-plea term raised from %s to minimum floor %s months",
				fmtMonths(*pre), fmtMonths(floor)))
			pre = Float(floor)
		}
	}

	if decision.FloorPostMonths != nil {
		floor := *decision.FloorPostMonths
		switch {
		case post == nil:
			post = Float(floor)
			trace = append(trace, fmt.Sprintf("Post-plea term set to minimum floor %s months", fmtMonths(floor)))
		case *post < floor:
			trace = append(trace, fmt.Sprintf("Post-plea term raised from %s to minimum floor %s months",
				fmtMonths(*post), fmtMonths(floor)))
			post = Float(floor)
		}
	}

	return pre, post, trace
}
