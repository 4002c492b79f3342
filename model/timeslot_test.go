package model

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeSlots_CatalogShape(t *testing.T) {
	assert.Len(t, TimeSlots, 12)
	assert.True(t, sort.StringsAreSorted(TimeSlots), "catalog must be ascending")

	// Lunch gap: nothing between 12:00 and 14:00.
	assert.Contains(t, TimeSlots, "12:00")
	assert.Contains(t, TimeSlots, "14:00")
	assert.NotContains(t, TimeSlots, "12:30")
	assert.NotContains(t, TimeSlots, "13:00")
	assert.NotContains(t, TimeSlots, "13:30")
}

func TestAllSlots_ReturnsCopy(t *testing.T) {
	slots := AllSlots()
	slots[0] = "09:00"
	assert.Equal(t, "10:00", TimeSlots[0], "mutating the returned slice must not touch the catalog")
}

func TestIsCatalogSlot(t *testing.T) {
	assert.True(t, IsCatalogSlot("10:00"))
	assert.True(t, IsCatalogSlot("17:00"))
	assert.False(t, IsCatalogSlot("13:00"))
	assert.False(t, IsCatalogSlot("10:15"))
	assert.False(t, IsCatalogSlot(""))
}
