package model

// TimeSlots is the fixed daily catalog of bookable times, identical for every
// doctor and every date: 10:00-12:00 and 14:00-17:00 every 30 minutes, with a
// lunch gap in between. Defined once, never mutated at runtime.
var TimeSlots = []string{
	"10:00", "10:30", "11:00", "11:30", "12:00",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00",
}

// AllSlots returns a copy of the slot catalog so callers cannot modify it.
func AllSlots() []string {
	return append([]string(nil), TimeSlots...)
}

// IsCatalogSlot reports whether t is one of the bookable "HH:MM" slots.
func IsCatalogSlot(t string) bool {
	for _, slot := range TimeSlots {
		if slot == t {
			return true
		}
	}
	return false
}
