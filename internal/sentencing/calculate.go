package sentencing

import "fmt"

// Calculate runs the full deterministic pipeline for one validated input:
// plea discount, minimum-sentence decision, floor application, release
// fraction, custody estimate, victim surcharge, matrix match and warnings.
// Trace lines are emitted in pipeline order (plea, minimum, floor lifts,
// release) and are stable across runs.
func Calculate(in *CalculationInput, matrixRows []MatrixRow) *CalculationResult {
	trace := []string{}

	pre := in.PrePleaTermMonths
	post := SentenceAfterPlea(pre, in.PleaStage)
	if pre != nil {
		trace = append(trace, fmt.Sprintf("Applied plea factor for %s: pre=%s -> post=%s",
			in.PleaStage, fmtMonths(*pre), fmtMonths(*post)))
	}

	minDecision := DecideMinimumSentence(in)
	if minDecision.Triggered {
		reason := minDecision.Reason
		if reason == "" {
			reason = "Minimum sentence rule triggered"
		}
		trace = append(trace, reason)
	}

	pre, post, floorTrace := ApplyMinimumFloor(pre, post, minDecision)
	trace = append(trace, floorTrace...)

	release := DecideReleaseFraction(in, post)
	trace = append(trace, release.Reason)

	var estimated *float64
	if post != nil && release.Fraction != nil {
		estimated = Float(round2(*post * *release.Fraction))
	}

	surcharge := VictimSurcharge(in.OffenceDate, in.AgeAtOffence, in.SentenceType, in.FineAmount, post)

	warnings := BuildWarnings(in, pre)
	if warnings == nil {
		// Wire contract: warnings and trace are arrays, never null.
		warnings = []string{}
	}

	return &CalculationResult{
		OffenceID:                    in.Offence.OffenceID,
		OffenceName:                  in.Offence.CanonicalName,
		SentenceType:                 in.SentenceType,
		PrePleaTermMonths:            pre,
		PostPleaTermMonths:           post,
		MinimumSentenceTriggered:     minDecision.Triggered,
		MinimumFloorPrePleaMonths:    minDecision.FloorPreMonths,
		MinimumFloorPostPleaMonths:   minDecision.FloorPostMonths,
		ReleaseFraction:              release.Fraction,
		EstimatedTimeInCustodyMonths: estimated,
		VictimSurchargeGBP:           round2(surcharge),
		MatchedRange:                 PickSentencingRange(in.Culpability, in.Harm, matrixRows),
		Warnings:                     warnings,
		Trace:                        trace,
	}
}
