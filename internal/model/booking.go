package model

// Booking is a guest's reservation of one room for a stay.  Dates, room
// and price are fixed at creation; only Status changes afterwards.
//
// Fields:
//
//	ID         – primary key identifier.
//	GuestName  – name the booking was made under.
//	RoomID     – reserved room.
//	DateRange  – check-in and check-out dates, check-out exclusive.
//	TotalPrice – price of the whole stay.
//	Status     – Confirmed, Checked_In, Checked_Out or Cancelled.
type Booking struct {
	ID         uint64        `json:"id"`          // Bookings.id
	GuestName  string        `json:"guest_name"`  // Bookings.guest_name
	RoomID     uint64        `json:"room_id"`     // Bookings.room_id
	DateRange                    // Bookings.check_in_date, Bookings.check_out_date
	TotalPrice Money         `json:"total_price"` // Bookings.total_price
	Status     BookingStatus `json:"status"`      // Bookings.status
}

// BookingDetail is a booking joined with its room for staff listings.
type BookingDetail struct {
	Booking
	RoomNumber string `json:"room_number"`
	RoomType   string `json:"room_type"`
}

// NewBooking carries the inputs of a reservation request.
type NewBooking struct {
	GuestName  string
	RoomID     uint64
	Stay       DateRange
	TotalPrice Money
}
