package stats

// Period selects which aggregate a ranking query reads from.
type Period string

const (
	PeriodTotal   Period = "total"
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod coerces unknown period strings to total rather than
// rejecting them, matching the tolerant input policy of the read paths.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodTotal:
		return Period(s)
	default:
		return PeriodTotal
	}
}

func (p Period) granularity() string {
	switch p {
	case PeriodDaily:
		return GranularityDay
	case PeriodWeekly:
		return GranularityWeek
	case PeriodMonthly:
		return GranularityMonth
	case PeriodYearly:
		return GranularityYear
	default:
		return ""
	}
}
