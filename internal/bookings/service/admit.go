package bookings

import "ms-booking/internal/models"

// Decision is the outcome of one admission check.
type Decision struct {
	Accepted bool
	// TotalBooked and Quantity are the values to persist when accepted.
	TotalBooked int
	Quantity    int
}

// Admit decides a booking request against the event's current counters.
// It never partially fills: a request that would push the total past
// capacity is rejected whole.
func Admit(totalBooked, maximumCapacity, existingQuantity, requested int) (Decision, error) {
	if requested <= 0 {
		return Decision{}, models.ValidationError("quantity", "must be a positive integer")
	}

	// compared against the remainder so a huge request cannot wrap the sum
	if requested > maximumCapacity-totalBooked {
		return Decision{Accepted: false, TotalBooked: totalBooked, Quantity: existingQuantity}, nil
	}
	return Decision{
		Accepted:    true,
		TotalBooked: totalBooked + requested,
		Quantity:    existingQuantity + requested,
	}, nil
}
