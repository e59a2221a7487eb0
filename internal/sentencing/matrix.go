package sentencing

import "strings"

// PickSentencingRange matches the requested culpability/harm labels against
// the offence's guideline matrix. Exact case-folded equality wins; failing
// that, a containment pass accepts labels like "1" against "Category 1".
// Missing labels or no match yield nil, which is not an error.
func PickSentencingRange(culpability, harm string, rows []MatrixRow) *SentencingRange {
	desiredCulp := strings.ToLower(strings.TrimSpace(culpability))
	desiredHarm := strings.ToLower(strings.TrimSpace(harm))
	if desiredCulp == "" || desiredHarm == "" {
		return nil
	}

	for i := range rows {
		rowCulp := strings.ToLower(strings.TrimSpace(rows[i].Culpability))
		rowHarm := strings.ToLower(strings.TrimSpace(rows[i].Harm))
		if rowCulp == desiredCulp && rowHarm == desiredHarm {
			return rangeFromRow(&rows[i])
		}
	}

	for i := range rows {
		rowCulp := strings.ToLower(strings.TrimSpace(rows[i].Culpability))
		rowHarm := strings.ToLower(strings.TrimSpace(rows[i].Harm))
		if strings.Contains(rowCulp, desiredCulp) && strings.Contains(rowHarm, desiredHarm) {
			return rangeFromRow(&rows[i])
		}
	}

	return nil
}

func rangeFromRow(row *MatrixRow) *SentencingRange {
	return &SentencingRange{
		Culpability:       row.Culpability,
		Harm:              row.Harm,
		StartingPointText: row.StartingPointText,
		CategoryRangeText: row.CategoryRangeText,
	}
}
