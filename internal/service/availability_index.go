package service

import (
	"time"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

const (
	// AvailabilityHorizonDays is the length of the rolling booking calendar, today included.
	AvailabilityHorizonDays = 14
	// DateLayout is the wire format of calendar dates.
	DateLayout = "2006-01-02"
)

// AvailabilityIndex answers calendar questions about one teacher's weekly availability.
// Dates are interpreted in the index location.
type AvailabilityIndex struct {
	window models.AvailabilityWindow
	loc    *time.Location
}

// NewAvailabilityIndex builds an index over the window. A nil location means time.Local.
func NewAvailabilityIndex(window models.AvailabilityWindow, loc *time.Location) *AvailabilityIndex {
	if loc == nil {
		loc = time.Local
	}
	return &AvailabilityIndex{window: window, loc: loc}
}

// UpcomingDates returns the calendar days of the horizon starting at today's date, each tagged with
// its weekday and declared slots.
func (i *AvailabilityIndex) UpcomingDates(today time.Time) []models.BookableDate {
	start := i.startOfDay(today)
	dates := make([]models.BookableDate, 0, AvailabilityHorizonDays)
	for d := 0; d < AvailabilityHorizonDays; d++ {
		day := start.AddDate(0, 0, d)
		weekday := models.WeekdayOf(day)
		dates = append(dates, models.BookableDate{
			Date:    day.Format(DateLayout),
			Weekday: weekday,
			Slots:   i.slotsFor(weekday),
		})
	}
	return dates
}

// BookableDates filters the horizon to days whose weekday has at least one open slot.
func (i *AvailabilityIndex) BookableDates(today time.Time) []models.BookableDate {
	upcoming := i.UpcomingDates(today)
	bookable := make([]models.BookableDate, 0, len(upcoming))
	for _, date := range upcoming {
		if len(date.Slots) > 0 {
			bookable = append(bookable, date)
		}
	}
	return bookable
}

// SlotsOn returns the open slots for the date's weekday, or an empty list when none are declared.
func (i *AvailabilityIndex) SlotsOn(date time.Time) []string {
	return i.slotsFor(models.WeekdayOf(date.In(i.loc)))
}

// SlotsOnDate parses a YYYY-MM-DD date and returns its slots.
func (i *AvailabilityIndex) SlotsOnDate(raw string) ([]string, error) {
	date, err := i.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return i.SlotsOn(date), nil
}

// IsBookable reports whether the date falls inside the horizon that starts at today and has slots.
func (i *AvailabilityIndex) IsBookable(today, date time.Time) bool {
	target := i.startOfDay(date).Format(DateLayout)
	for _, d := range i.BookableDates(today) {
		if d.Date == target {
			return true
		}
	}
	return false
}

// ParseDate reads a YYYY-MM-DD date at midnight in the index location.
func (i *AvailabilityIndex) ParseDate(raw string) (time.Time, error) {
	date, err := time.ParseInLocation(DateLayout, raw, i.loc)
	if err != nil {
		return time.Time{}, appErrors.Invalid("selectedDate", "selectedDate must use the YYYY-MM-DD format")
	}
	return date, nil
}

// At combines a calendar date with the start of a slot into one instant.
func (i *AvailabilityIndex) At(date time.Time, slot string) (time.Time, error) {
	hour, minute, err := models.SlotStart(slot)
	if err != nil {
		return time.Time{}, err
	}
	d := date.In(i.loc)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, i.loc), nil
}

func (i *AvailabilityIndex) slotsFor(day models.Weekday) []string {
	slots := i.window.Slots(day)
	out := make([]string, len(slots))
	copy(out, slots)
	return out
}

func (i *AvailabilityIndex) startOfDay(t time.Time) time.Time {
	local := t.In(i.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, i.loc)
}
