package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	SlotLayout = "15:04"

	// AllDaySlot is the sentinel slot used to block a whole date.
	AllDaySlot = "ALL_DAY"

	SlotWidth = 60 * time.Minute
)

// WorkingHours is the ordered set of bookable slot start times shared by every date.
var WorkingHours = []string{
	"08:00", "09:00", "10:00", "11:00", "12:00",
	"13:00", "14:00", "15:00", "16:00", "17:00", "18:00",
}

// SlotsNeeded converts a service duration into a number of contiguous slots.
func SlotsNeeded(durationMinutes int) int {
	width := int(SlotWidth / time.Minute)
	if durationMinutes <= 0 {
		return 1
	}
	return (durationMinutes + width - 1) / width
}

// SlotIndex returns the position of slot within WorkingHours.
func SlotIndex(slot string) (int, error) {
	for i, s := range WorkingHours {
		if s == slot {
			return i, nil
		}
	}
	return -1, validationError(fmt.Sprintf("unknown slot %q", slot))
}

// SlotRange returns count contiguous slots beginning at start. The result is
// truncated at the last working slot; complete reports whether all count slots fit.
func SlotRange(start string, count int) ([]string, bool, error) {
	idx, err := SlotIndex(start)
	if err != nil {
		return nil, false, err
	}
	if count < 1 {
		count = 1
	}
	end := idx + count
	complete := true
	if end > len(WorkingHours) {
		end = len(WorkingHours)
		complete = false
	}
	out := make([]string, end-idx)
	copy(out, WorkingHours[idx:end])
	return out, complete, nil
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, validationError(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s))
	}
	return d, nil
}

// ParseSlot validates an "HH:MM" label against the working calendar.
func ParseSlot(s string) (string, error) {
	if _, err := time.Parse(SlotLayout, s); err != nil {
		return "", validationError(fmt.Sprintf("invalid slot %q, want HH:MM", s))
	}
	if _, err := SlotIndex(s); err != nil {
		return "", err
	}
	return s, nil
}

func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// SlotOf maps an appointment time onto its slot label.
func SlotOf(t time.Time) (string, error) {
	if t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		return "", validationError("appointment_time must start on the hour")
	}
	slot := t.Format(SlotLayout)
	if _, err := SlotIndex(slot); err != nil {
		return "", err
	}
	return slot, nil
}

// WallClock drops the location of t while keeping its local reading, so that
// times from different zones compare against appointment times stored as UTC wall clock.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// AppointmentLayout is the wire form of an appointment time: a wall-clock
// reading in the business time zone, without an offset.
const AppointmentLayout = "2006-01-02T15:04"

// ParseAppointmentTime accepts AppointmentLayout, the same with seconds, or
// RFC 3339. An RFC 3339 offset is dropped and only the local reading is kept.
func ParseAppointmentTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{AppointmentLayout, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return WallClock(t), nil
	}
	return time.Time{}, validationError(fmt.Sprintf("invalid appointment_time %q, want YYYY-MM-DDTHH:MM", s))
}

func FormatAppointmentTime(t time.Time) string {
	return t.Format(AppointmentLayout)
}
