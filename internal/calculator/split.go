package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// SplitMode selects how DeriveSplits distributes an amount.
type SplitMode string

const (
	SplitEqual      SplitMode = "equal"
	SplitExact      SplitMode = "exact"
	SplitPercentage SplitMode = "percentage"
)

// ParseSplitMode validates a mode name.
func ParseSplitMode(s string) (SplitMode, error) {
	switch m := SplitMode(s); m {
	case SplitEqual, SplitExact, SplitPercentage:
		return m, nil
	}
	return "", fmt.Errorf("unknown split mode %q", s)
}

// DeriveSplits computes participant shares of amount.
//
//   - SplitEqual ignores inputs and divides amount evenly. Leftover cents go to
//     the first participants so the shares always sum to amount.
//   - SplitExact takes inputs as amounts; they must sum to amount.
//   - SplitPercentage takes inputs as percents; they must sum to 100. Rounding
//     leftovers are spread a cent at a time over participants with a positive
//     percentage, first participant first. No share goes negative.
//
// Participants missing from inputs count as zero.
func DeriveSplits(mode SplitMode, amount float64, participants []string, inputs map[string]float64) ([]models.Split, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}
	total := cents(amount)
	if total.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}
	for id, v := range inputs {
		if v < 0 {
			return nil, fmt.Errorf("input for %s cannot be negative", id)
		}
	}

	switch mode {
	case SplitEqual:
		return equalSplits(total, participants), nil
	case SplitExact:
		return exactSplits(total, participants, inputs)
	case SplitPercentage:
		return percentageSplits(total, participants, inputs)
	}
	return nil, fmt.Errorf("unknown split mode %q", mode)
}

func equalSplits(total decimal.Decimal, participants []string) []models.Split {
	n := int64(len(participants))
	totalCents := total.Shift(centPlaces).IntPart()
	per, rem := totalCents/n, totalCents%n

	splits := make([]models.Split, len(participants))
	for i, p := range participants {
		c := per
		if int64(i) < rem {
			c++
		}
		splits[i] = models.Split{
			UserID: p,
			Amount: decimal.New(c, -centPlaces).InexactFloat64(),
		}
	}
	return splits
}

func exactSplits(total decimal.Decimal, participants []string, inputs map[string]float64) ([]models.Split, error) {
	splits := make([]models.Split, len(participants))
	sum := decimal.Zero
	for i, p := range participants {
		v := cents(inputs[p])
		sum = sum.Add(v)
		splits[i] = models.Split{UserID: p, Amount: v.InexactFloat64()}
	}
	if !sum.Equal(total) {
		return nil, fmt.Errorf("exact amounts sum to %s, expected %s", sum.StringFixed(centPlaces), total.StringFixed(centPlaces))
	}
	return splits, nil
}

func percentageSplits(total decimal.Decimal, participants []string, inputs map[string]float64) ([]models.Split, error) {
	hundred := decimal.NewFromInt(100)
	pctSum := decimal.Zero
	for _, p := range participants {
		pctSum = pctSum.Add(dec(inputs[p]))
	}
	if !pctSum.Round(centPlaces).Equal(hundred) {
		return nil, fmt.Errorf("percentages sum to %s, expected 100", pctSum.StringFixed(centPlaces))
	}

	shares := make([]decimal.Decimal, len(participants))
	assigned := decimal.Zero
	for i, p := range participants {
		shares[i] = total.Mul(dec(inputs[p])).Div(hundred).Round(centPlaces)
		assigned = assigned.Add(shares[i])
	}
	if err := spreadRemainder(shares, total.Sub(assigned), func(i int) bool {
		return dec(inputs[participants[i]]).IsPositive()
	}); err != nil {
		return nil, err
	}

	splits := make([]models.Split, len(participants))
	for i, p := range participants {
		splits[i] = models.Split{UserID: p, Amount: shares[i].InexactFloat64()}
	}
	return splits, nil
}

// spreadRemainder hands remainder out a cent at a time, starting with the
// first eligible share. A share never drops below zero.
func spreadRemainder(shares []decimal.Decimal, remainder decimal.Decimal, eligible func(i int) bool) error {
	cent := decimal.New(1, -centPlaces)
	if remainder.IsNegative() {
		cent = cent.Neg()
	}
	for !remainder.Round(centPlaces).IsZero() {
		moved := false
		for i := range shares {
			if remainder.Round(centPlaces).IsZero() {
				break
			}
			if !eligible(i) || shares[i].Add(cent).IsNegative() {
				continue
			}
			shares[i] = shares[i].Add(cent)
			remainder = remainder.Sub(cent)
			moved = true
		}
		if !moved {
			return fmt.Errorf("cannot distribute remainder %s", remainder.StringFixed(centPlaces))
		}
	}
	return nil
}
