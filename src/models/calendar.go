package models

// CalendarKind selects one of the market event calendars.
type CalendarKind string

const (
	CalendarEconomic CalendarKind = "economic"
	CalendarEarnings CalendarKind = "earnings"
	CalendarIPO      CalendarKind = "ipo"
)

func ParseCalendarKind(name string) (CalendarKind, bool) {
	switch CalendarKind(name) {
	case CalendarEconomic, CalendarEarnings, CalendarIPO:
		return CalendarKind(name), true
	}
	return "", false
}

// MCalendarEvent is a single economic release, earnings report or IPO.
// Fields that do not apply to a kind stay empty.
type MCalendarEvent struct {
	Kind     CalendarKind `json:"kind"`
	Date     string       `json:"date"`
	Time     string       `json:"time,omitempty"`
	Symbol   string       `json:"symbol,omitempty"`
	Name     string       `json:"name,omitempty"`
	Country  string       `json:"country,omitempty"`
	Impact   string       `json:"impact,omitempty"`
	Actual   *float64     `json:"actual,omitempty"`
	Estimate *float64     `json:"estimate,omitempty"`
	Previous *float64     `json:"previous,omitempty"`
	Exchange string       `json:"exchange,omitempty"`
	Price    string       `json:"price,omitempty"`
	Status   string       `json:"status,omitempty"`
}
