package sentencing

import "time"

// makeInput builds a neutral adult input: determinate custody, first-stage
// plea, 2024 dates, an offence with no minimum code, no schedule flags and a
// non-life maximum. Tests mutate only the fields under examination.
func makeInput(mutate func(in *CalculationInput)) *CalculationInput {
	in := &CalculationInput{
		Offence: OffenceRecord{
			OffenceID:             "0b6fdbcb-52ea-4767-9a0f-0f5e3a94c28f",
			CanonicalName:         "Common assault",
			ShortName:             "Common assault",
			OffenceCategory:       "Assault offences",
			Provision:             "Criminal Justice Act 1988 s.39",
			MaximumSentenceType:   "custody",
			MaximumSentenceAmount: "6 months",
		},
		OffenceDate:            date(2024, time.March, 10),
		ConvictionDate:         date(2024, time.May, 2),
		SentenceDate:           date(2024, time.June, 20),
		AgeAtOffence:           30,
		AgeAtConviction:        30,
		AgeAtSentence:          30,
		PleaStage:              PleaFirstStage,
		SentenceType:           SentenceDeterminateCustodial,
		ReplicateACEReleaseBug: true,
	}
	if mutate != nil {
		mutate(in)
	}
	return in
}
