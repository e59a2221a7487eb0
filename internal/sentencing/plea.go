package sentencing

// pleaFactors maps each plea stage to the fraction of the pre-plea term that
// survives the guilty-plea discount. Factors are exact rationals applied
// before rounding.
var pleaFactors = map[PleaStage]float64{
	PleaFirstStage:                 2.0 / 3.0,
	PleaAfterFirstStageBeforeTrial: 3.0 / 4.0,
	PleaDayOfTrial:                 9.0 / 10.0,
	PleaAfterTrialBegins:           19.0 / 20.0,
	PleaNotGuilty:                  1.0,
}

// PleaFactor returns the discount factor for a stage. Unknown stages get no
// discount.
func PleaFactor(stage PleaStage) float64 {
	if f, ok := pleaFactors[stage]; ok {
		return f
	}
	return 1.0
}

// SentenceAfterPlea applies the plea-stage discount to the pre-plea term,
// rounded to two decimal places. A nil term passes through as nil.
func SentenceAfterPlea(prePleaTermMonths *float64, stage PleaStage) *float64 {
	if prePleaTermMonths == nil {
		return nil
	}
	return Float(round2(*prePleaTermMonths * PleaFactor(stage)))
}
