package models

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a calendar day name as declared in a teacher's availability.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Weekdays lists the valid day names in calendar order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// WeekdayOf returns the weekday name of t in its own location.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday().String())
}

// ParseWeekday matches a day name case-insensitively.
func ParseWeekday(raw string) (Weekday, bool) {
	raw = strings.TrimSpace(raw)
	for _, d := range Weekdays {
		if strings.EqualFold(string(d), raw) {
			return d, true
		}
	}
	return "", false
}

// AvailabilityWindow maps weekdays to the teacher's open time slots.
type AvailabilityWindow map[Weekday][]string

// Slots returns the slots declared for the weekday.
func (w AvailabilityWindow) Slots(day Weekday) []string {
	if w == nil {
		return nil
	}
	return w[day]
}

// Has reports whether slot is declared for the weekday.
func (w AvailabilityWindow) Has(day Weekday, slot string) bool {
	for _, s := range w.Slots(day) {
		if s == slot {
			return true
		}
	}
	return false
}

// TeacherAvailability is the persisted availability of one teacher.
type TeacherAvailability struct {
	TeacherID string             `json:"teacherId"`
	Window    AvailabilityWindow `json:"availability"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// BookableDate is one selectable calendar day.
type BookableDate struct {
	Date    string   `json:"date"`
	Weekday Weekday  `json:"weekday"`
	Slots   []string `json:"slots"`
}

// SlotStart parses the start of a slot written as "HH:MM" or "HH:MM-HH:MM".
func SlotStart(slot string) (hour, minute int, err error) {
	start := strings.TrimSpace(slot)
	if idx := strings.Index(start, "-"); idx >= 0 {
		start = strings.TrimSpace(start[:idx])
	}
	parsed, err := time.Parse("15:04", start)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time slot %q", slot)
	}
	return parsed.Hour(), parsed.Minute(), nil
}
