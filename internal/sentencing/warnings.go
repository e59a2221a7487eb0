package sentencing

// Warning strings surfaced when statutory life-sentence or Schedule 18A
// conditions may apply. These flag review points; they never alter the
// computed terms.
const (
	warnRepeatListedOffence = "Mandatory life sentence route may be engaged for repeat listed offence; review SC283/SC273 conditions."
	warnDangerousness       = "Dangerousness + specified offence + life max may trigger mandatory life provisions; review SC285/SC274/SC258."
	warnSchedule18AMismatch = "Special custodial sentence selected but offence is not marked Schedule 18A in offence metadata."
)

// BuildWarnings evaluates the warning conjunctions against the final
// pre-plea term.
func BuildWarnings(in *CalculationInput, prePleaTermMonths *float64) []string {
	var warnings []string
	offence := &in.Offence

	pre := 0.0
	if prePleaTermMonths != nil {
		pre = *prePleaTermMonths
	}

	if offence.ListedOffence && in.AgeAtSentence >= 18 && in.PriorListedOffenceWithCustody && pre >= 120 {
		warnings = append(warnings, warnRepeatListedOffence)
	}

	if offence.SpecifiedViolent || offence.SpecifiedSexual || offence.SpecifiedTerrorist {
		if in.DangerousnessAssessed && offence.HasLifeMaximum() {
			warnings = append(warnings, warnDangerousness)
		}
	}

	if in.SentenceType == SentenceSpecialCustodial && !offence.Schedule18AOffence {
		warnings = append(warnings, warnSchedule18AMismatch)
	}

	return warnings
}
