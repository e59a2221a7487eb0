package sentencing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVictimSurcharge_BeforeCommencement(t *testing.T) {
	got := VictimSurcharge(date(2010, time.January, 1), 30, SentenceDeterminateCustodial, nil, Float(12))
	assert.Equal(t, 0.0, got)

	got = VictimSurcharge(date(2012, time.September, 30), 30, SentenceFine, Float(500), nil)
	assert.Equal(t, 0.0, got)
}

func TestVictimSurcharge_BandSelection(t *testing.T) {
	// Same disposal across eras: adult conditional discharge.
	tests := []struct {
		offenceDate time.Time
		want        float64
	}{
		{date(2012, time.October, 1), 15},
		{date(2016, time.April, 7), 15},
		{date(2016, time.April, 8), 20},
		{date(2019, time.June, 28), 21},
		{date(2020, time.April, 14), 22},
		{date(2022, time.June, 15), 22},
		{date(2022, time.June, 16), 26},
		{date(2024, time.March, 1), 26},
	}
	for _, tt := range tests {
		got := VictimSurcharge(tt.offenceDate, 30, SentenceConditionalDischarge, nil, nil)
		assert.Equal(t, tt.want, got, "offence date %s", tt.offenceDate.Format("2006-01-02"))
	}
}

func TestVictimSurcharge_AdultFine(t *testing.T) {
	t.Run("current era charges forty percent capped", func(t *testing.T) {
		day := date(2022, time.August, 1)
		assert.Equal(t, 200.0, VictimSurcharge(day, 30, SentenceFine, Float(500), nil))
		assert.Equal(t, 400.0, VictimSurcharge(day, 30, SentenceFine, Float(1000), nil))
		assert.Equal(t, 2000.0, VictimSurcharge(day, 30, SentenceFine, Float(10000), nil), "capped at 2000")
	})

	t.Run("ten percent eras clamp between floor and cap", func(t *testing.T) {
		day := date(2021, time.January, 1)
		assert.Equal(t, 34.0, VictimSurcharge(day, 30, SentenceFine, Float(100), nil), "floor applies")
		assert.Equal(t, 50.0, VictimSurcharge(day, 30, SentenceFine, Float(500), nil))
		assert.Equal(t, 190.0, VictimSurcharge(day, 30, SentenceFine, Float(5000), nil), "cap applies")
	})

	t.Run("missing fine amount charges nothing", func(t *testing.T) {
		assert.Equal(t, 0.0, VictimSurcharge(date(2024, time.January, 1), 30, SentenceFine, nil, nil))
	})
}

func TestVictimSurcharge_AdultDisposals(t *testing.T) {
	day := date(2024, time.January, 10)

	assert.Equal(t, 114.0, VictimSurcharge(day, 30, SentenceCommunityOrder, nil, nil))

	t.Run("suspended order splits at six months", func(t *testing.T) {
		assert.Equal(t, 154.0, VictimSurcharge(day, 30, SentenceSuspendedOrder, nil, Float(6)))
		assert.Equal(t, 187.0, VictimSurcharge(day, 30, SentenceSuspendedOrder, nil, Float(6.5)))
	})

	t.Run("custody bands", func(t *testing.T) {
		assert.Equal(t, 154.0, VictimSurcharge(day, 30, SentenceDeterminateCustodial, nil, Float(6)))
		assert.Equal(t, 187.0, VictimSurcharge(day, 30, SentenceDeterminateCustodial, nil, Float(8)))
		assert.Equal(t, 187.0, VictimSurcharge(day, 30, SentenceDeterminateCustodial, nil, Float(24)))
		assert.Equal(t, 228.0, VictimSurcharge(day, 30, SentenceDeterminateCustodial, nil, Float(25)))
	})

	t.Run("custody with no term lands in the lowest band", func(t *testing.T) {
		assert.Equal(t, 154.0, VictimSurcharge(day, 30, SentenceDeterminateCustodial, nil, nil))
	})

	t.Run("life sentences charge as custody", func(t *testing.T) {
		assert.Equal(t, 228.0, VictimSurcharge(day, 30, SentenceMandatoryLife, nil, Float(160)))
	})
}

func TestVictimSurcharge_Youth(t *testing.T) {
	day := date(2024, time.January, 10)

	assert.Equal(t, 20.0, VictimSurcharge(day, 16, SentenceConditionalDischarge, nil, nil))
	assert.Equal(t, 26.0, VictimSurcharge(day, 16, SentenceFine, Float(200), nil))
	assert.Equal(t, 26.0, VictimSurcharge(day, 16, SentenceYouthRehabilitationOrder, nil, nil))
	assert.Equal(t, 26.0, VictimSurcharge(day, 16, SentenceCommunityOrder, nil, nil))
	assert.Equal(t, 41.0, VictimSurcharge(day, 16, SentenceDTO, nil, Float(4)))
	assert.Equal(t, 41.0, VictimSurcharge(day, 16, SentenceSuspendedOrder, nil, Float(4)))

	t.Run("age at offence governs, not age at sentence", func(t *testing.T) {
		assert.Equal(t, 41.0, VictimSurcharge(day, 17, SentenceYOIDetention, nil, Float(12)))
		assert.Equal(t, 187.0, VictimSurcharge(day, 18, SentenceDeterminateCustodial, nil, Float(12)))
	})
}
