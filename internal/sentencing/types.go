// Package sentencing implements the deterministic sentencing rules engine:
// plea-stage discounts, statutory minimum-sentence floors, release-fraction
// selection and the victim surcharge table. The package performs no I/O;
// offence records and matrix rows are resolved by the caller and passed in.
package sentencing

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// PleaStage is the procedural moment at which a guilty plea was indicated.
type PleaStage string

const (
	PleaFirstStage                 PleaStage = "first_stage"
	PleaAfterFirstStageBeforeTrial PleaStage = "after_first_stage_before_trial"
	PleaDayOfTrial                 PleaStage = "day_of_trial"
	PleaAfterTrialBegins           PleaStage = "after_trial_begins"
	PleaNotGuilty                  PleaStage = "not_guilty"
)

// PleaStages lists every accepted plea stage in wire order.
var PleaStages = []PleaStage{
	PleaFirstStage,
	PleaAfterFirstStageBeforeTrial,
	PleaDayOfTrial,
	PleaAfterTrialBegins,
	PleaNotGuilty,
}

// Valid reports whether the stage is one of the accepted literals.
func (p PleaStage) Valid() bool {
	for _, s := range PleaStages {
		if p == s {
			return true
		}
	}
	return false
}

// SentenceType is the disposal imposed by the court.
type SentenceType string

const (
	SentenceConditionalDischarge      SentenceType = "conditional_discharge"
	SentenceFine                      SentenceType = "fine"
	SentenceCommunityOrder            SentenceType = "community_order"
	SentenceYouthRehabilitationOrder  SentenceType = "youth_rehabilitation_order"
	SentenceDeterminateCustodial      SentenceType = "determinate_custodial_sentence"
	SentenceSuspendedOrder            SentenceType = "suspended_sentence_order"
	SentenceDTO                       SentenceType = "dto"
	SentenceYOIDetention              SentenceType = "yoi_detention"
	SentenceExtended                  SentenceType = "extended_sentence"
	SentenceSpecialCustodial          SentenceType = "special_custodial_sentence"
	SentenceDiscretionaryLife         SentenceType = "discretionary_life_sentence"
	SentenceMandatoryLife             SentenceType = "mandatory_life_sentence"
)

// SentenceTypes lists every accepted sentence type in wire order.
var SentenceTypes = []SentenceType{
	SentenceConditionalDischarge,
	SentenceFine,
	SentenceCommunityOrder,
	SentenceYouthRehabilitationOrder,
	SentenceDeterminateCustodial,
	SentenceSuspendedOrder,
	SentenceDTO,
	SentenceYOIDetention,
	SentenceExtended,
	SentenceSpecialCustodial,
	SentenceDiscretionaryLife,
	SentenceMandatoryLife,
}

// Valid reports whether the type is one of the accepted literals.
func (s SentenceType) Valid() bool {
	for _, t := range SentenceTypes {
		if s == t {
			return true
		}
	}
	return false
}

var custodialSentenceTypes = map[SentenceType]bool{
	SentenceDeterminateCustodial: true,
	SentenceDTO:                  true,
	SentenceYOIDetention:         true,
	SentenceExtended:             true,
	SentenceSpecialCustodial:     true,
	SentenceDiscretionaryLife:    true,
	SentenceMandatoryLife:        true,
}

// Custodial reports whether the sentence type carries a custodial term.
// Suspended sentence orders are custodial in form but not immediate; see
// Immediate.
func (s SentenceType) Custodial() bool {
	return custodialSentenceTypes[s]
}

// Immediate reports whether the sentence type results in immediate custody.
func (s SentenceType) Immediate() bool {
	return s.Custodial() && s != SentenceSuspendedOrder
}

// OffenceRecord is the canonical catalog entry for one offence, resolved per
// request. Field names mirror the store columns.
type OffenceRecord struct {
	OffenceID             string `json:"offence_id"`
	CanonicalName         string `json:"canonical_name"`
	ShortName             string `json:"short_name"`
	OffenceCategory       string `json:"offence_category"`
	Provision             string `json:"provision"`
	GuidelineURL          string `json:"guideline_url"`
	LegislationURL        string `json:"legislation_url"`
	MaximumSentenceType   string `json:"maximum_sentence_type"`
	MaximumSentenceAmount string `json:"maximum_sentence_amount"`
	MinimumSentenceCode   string `json:"minimum_sentence_code"`
	SpecifiedViolent      bool   `json:"specified_violent"`
	SpecifiedSexual       bool   `json:"specified_sexual"`
	SpecifiedTerrorist    bool   `json:"specified_terrorist"`
	ListedOffence         bool   `json:"listed_offence"`
	Schedule18AOffence    bool   `json:"schedule18a_offence"`
	Schedule19ZA          bool   `json:"schedule19za"`
	CTANotification       bool   `json:"cta_notification"`
}

// HasLifeMaximum reports whether the offence carries a life maximum, read
// from the free-text maximum amount.
func (o *OffenceRecord) HasLifeMaximum() bool {
	return strings.Contains(strings.ToLower(o.MaximumSentenceAmount), "life")
}

// CalculationInput is a fully validated calculation request bound to its
// resolved offence. Dates are UTC midnight.
type CalculationInput struct {
	Offence OffenceRecord

	OffenceDate    time.Time
	ConvictionDate time.Time
	SentenceDate   time.Time

	AgeAtOffence    int
	AgeAtConviction int
	AgeAtSentence   int

	PleaStage    PleaStage
	SentenceType SentenceType

	Culpability string
	Harm        string

	PrePleaTermMonths *float64
	ExtensionMonths   float64
	FineAmount        *float64

	DangerousnessAssessed         bool
	PriorListedOffenceWithCustody bool
	PriorDomesticBurglaryCount    int
	PriorClassATraffickingCount   int
	PriorRelevantWeaponConviction bool
	TerrorismFlag                 bool

	MinimumSentenceUnjustOrExceptional bool
	ReplicateACEReleaseBug             bool
}

// MinimumDecision is the outcome of the minimum-sentence decider. FloorPost
// may be nil even when triggered (youth DTO routes carry no post-plea floor).
type MinimumDecision struct {
	Triggered       bool
	FloorPreMonths  *float64
	FloorPostMonths *float64
	Reason          string
}

// ReleaseDecision is the outcome of the release-fraction decider. A nil
// fraction means release is not represented as a determinate fraction.
type ReleaseDecision struct {
	Fraction *float64
	Reason   string
}

// MatrixRow is one culpability/harm cell of a sentencing guideline matrix.
type MatrixRow struct {
	MatrixID          string `json:"matrix_id"`
	GuidelineID       string `json:"guideline_id"`
	OffenceID         string `json:"offence_id"`
	Culpability       string `json:"culpability"`
	Harm              string `json:"harm"`
	StartingPointText string `json:"starting_point_text"`
	CategoryRangeText string `json:"category_range_text"`
}

// SentencingRange is the matched matrix cell returned to the caller.
type SentencingRange struct {
	Culpability       string `json:"culpability"`
	Harm              string `json:"harm"`
	StartingPointText string `json:"starting_point_text"`
	CategoryRangeText string `json:"category_range_text"`
}

// CalculationResult is the full outcome of one sentencing calculation.
type CalculationResult struct {
	OffenceID                    string           `json:"offence_id"`
	OffenceName                  string           `json:"offence_name"`
	SentenceType                 SentenceType     `json:"sentence_type"`
	PrePleaTermMonths            *float64         `json:"pre_plea_term_months"`
	PostPleaTermMonths           *float64         `json:"post_plea_term_months"`
	MinimumSentenceTriggered     bool             `json:"minimum_sentence_triggered"`
	MinimumFloorPrePleaMonths    *float64         `json:"minimum_floor_pre_plea_months"`
	MinimumFloorPostPleaMonths   *float64         `json:"minimum_floor_post_plea_months"`
	ReleaseFraction              *float64         `json:"release_fraction"`
	EstimatedTimeInCustodyMonths *float64         `json:"estimated_time_in_custody_months"`
	VictimSurchargeGBP           float64          `json:"victim_surcharge_gbp"`
	MatchedRange                 *SentencingRange `json:"matched_range"`
	Warnings                     []string         `json:"warnings"`
	Trace                        []string         `json:"trace"`
}

// Float returns a pointer to v. Optional months and amounts travel as
// pointers so nil can mean "not applicable".
func Float(v float64) *float64 {
	return &v
}

// round2 rounds to two decimal places, the display precision for months and
// surcharge amounts.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// fmtMonths renders a month count for trace lines without trailing zeros.
func fmtMonths(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// date builds a UTC calendar date. Rule thresholds compare at day precision.
func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
