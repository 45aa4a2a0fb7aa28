package core

import "strconv"

// Capacity is the number of units of a resource available at any instant.
// The zero value is a limited capacity of 0.
type Capacity struct {
	limit     int
	unlimited bool
}

// Limited returns a capacity of n units.
func Limited(n int) Capacity {
	return Capacity{limit: n}
}

// Unlimited returns a capacity that never constrains a schedule.
func Unlimited() Capacity {
	return Capacity{unlimited: true}
}

// IsUnlimited reports whether the capacity has no declared bound.
func (c Capacity) IsUnlimited() bool {
	return c.unlimited
}

// Limit returns the declared bound. ok is false for unlimited capacities.
func (c Capacity) Limit() (limit int, ok bool) {
	if c.unlimited {
		return 0, false
	}
	return c.limit, true
}

func (c Capacity) String() string {
	if c.unlimited {
		return "unlimited"
	}
	return strconv.Itoa(c.limit)
}

// Resource is a shared kitchen resource: a pot, an oven, a pair of hands.
type Resource struct {
	ID       ResourceID
	Name     string
	Capacity Capacity
}

// NewResource creates a resource.
func NewResource(id ResourceID, name string, capacity Capacity) *Resource {
	return &Resource{ID: id, Name: name, Capacity: capacity}
}
