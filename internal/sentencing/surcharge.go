package sentencing

import (
	"math"
	"time"
)

// surchargeBand is one era of the victim surcharge order. Adult entries
// index: 0 conditional discharge, 1 fine floor (10% eras only), 2 fine cap,
// 3 community/YRO, 4 suspended <=6m, 5 suspended >6m, 6 custody <=6m,
// 7 custody 6-24m, 8 custody >24m. Youth entries: 0 conditional discharge,
// 1 fine/community/YRO, 2 custody or suspended.
type surchargeBand struct {
	start   time.Time
	adult   [9]float64
	youth   [3]float64
	finePct float64
}

// surchargeBands in descending date order; the first band whose start is on
// or before the offence date applies. Offences before 2012-10-01 carry no
// surcharge.
var surchargeBands = []surchargeBand{
	{
		start:   date(2022, time.June, 16),
		adult:   [9]float64{26, 0, 2000, 114, 154, 187, 154, 187, 228},
		youth:   [3]float64{20, 26, 41},
		finePct: 0.40,
	},
	{
		start:   date(2020, time.April, 14),
		adult:   [9]float64{22, 34, 190, 95, 128, 156, 128, 156, 190},
		youth:   [3]float64{17, 22, 34},
		finePct: 0.10,
	},
	{
		start:   date(2019, time.June, 28),
		adult:   [9]float64{21, 32, 181, 90, 122, 149, 122, 149, 181},
		youth:   [3]float64{16, 21, 32},
		finePct: 0.10,
	},
	{
		start:   date(2016, time.April, 8),
		adult:   [9]float64{20, 30, 170, 85, 115, 140, 115, 140, 170},
		youth:   [3]float64{15, 20, 30},
		finePct: 0.10,
	},
	{
		start:   date(2012, time.October, 1),
		adult:   [9]float64{15, 20, 120, 60, 80, 100, 80, 100, 120},
		youth:   [3]float64{10, 15, 20},
		finePct: 0.10,
	},
}

var surchargeCommencement = date(2012, time.October, 1)

// VictimSurcharge computes the mandatory surcharge in GBP. The offence date
// selects the era, the offender's age at offence selects adult or youth
// rates, and the sentence type (plus fine amount or custodial term) selects
// the entry within the era.
func VictimSurcharge(offenceDate time.Time, ageAtOffence int, sentenceType SentenceType, fineAmount, custodialTermMonths *float64) float64 {
	if offenceDate.Before(surchargeCommencement) {
		return 0
	}

	var band surchargeBand
	for _, b := range surchargeBands {
		if !offenceDate.Before(b.start) {
			band = b
			break
		}
	}

	adult := ageAtOffence >= 18
	if !adult {
		switch sentenceType {
		case SentenceConditionalDischarge:
			return band.youth[0]
		case SentenceFine, SentenceYouthRehabilitationOrder, SentenceCommunityOrder:
			return band.youth[1]
		}
		if sentenceType.Custodial() || sentenceType == SentenceSuspendedOrder {
			return band.youth[2]
		}
		return 0
	}

	switch sentenceType {
	case SentenceConditionalDischarge:
		return band.adult[0]

	case SentenceFine:
		if fineAmount == nil {
			return 0
		}
		amount := math.Round(*fineAmount * band.finePct)
		if band.finePct == 0.40 {
			return math.Min(band.adult[2], amount)
		}
		// 10% eras clamp between the fine floor and cap.
		return math.Min(band.adult[2], math.Max(band.adult[1], amount))

	case SentenceCommunityOrder, SentenceYouthRehabilitationOrder:
		return band.adult[3]

	case SentenceSuspendedOrder:
		months := 0.0
		if custodialTermMonths != nil {
			months = *custodialTermMonths
		}
		if months <= 6 {
			return band.adult[4]
		}
		return band.adult[5]
	}

	if sentenceType.Custodial() {
		months := 0.0
		if custodialTermMonths != nil {
			months = *custodialTermMonths
		}
		switch {
		case months <= 6:
			return band.adult[6]
		case months <= 24:
			return band.adult[7]
		default:
			return band.adult[8]
		}
	}

	return 0
}
