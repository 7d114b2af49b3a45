package services

import (
	"time"

	"carestaff/internal/money"

	"github.com/shopspring/decimal"
)

var overtimeMultiplier = decimal.NewFromFloat(1.5)

// ComputeHours returns worked hours in hundredths: clocked minutes minus the
// break, divided by 60 and rounded to two decimal places.
func ComputeHours(clockIn, clockOut time.Time, breakMinutes int) int64 {
	minutes := decimal.NewFromFloat(clockOut.Sub(clockIn).Minutes()).
		Sub(decimal.NewFromInt(int64(breakMinutes)))
	if minutes.IsNegative() {
		return 0
	}
	hours := minutes.Div(decimal.NewFromInt(60)).Round(2)
	return hours.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ComputePay prices worked hours at the snapshotted rate, plus overtime at
// the explicit overtime rate or 1.5x the base rate when none was agreed.
// Rounded to the nearest minor unit.
func ComputePay(hoursHundredths, hourlyRateMinor int64, hasOvertime bool, overtimeHoursHundredths int64, overtimeRateMinor *int64) int64 {
	hours := decimal.NewFromInt(hoursHundredths).Div(decimal.NewFromInt(100))
	rate := money.DecimalFromMinor(hourlyRateMinor)
	pay := hours.Mul(rate)
	if hasOvertime && overtimeHoursHundredths > 0 {
		overtimeRate := rate.Mul(overtimeMultiplier)
		if overtimeRateMinor != nil {
			overtimeRate = money.DecimalFromMinor(*overtimeRateMinor)
		}
		overtimeHours := decimal.NewFromInt(overtimeHoursHundredths).Div(decimal.NewFromInt(100))
		pay = pay.Add(overtimeHours.Mul(overtimeRate))
	}
	return money.MinorFromDecimal(pay.Round(2))
}
