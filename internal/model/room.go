package model

// RoomType describes a category of room and its nightly rate.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – display name (Standard, Deluxe, Suite).
//	BasePrice – nightly price in fixed point.
//	Capacity  – maximum number of guests.
type RoomType struct {
	ID        uint64 `json:"id"`         // RoomTypes.id
	Name      string `json:"name"`       // RoomTypes.name
	BasePrice Money  `json:"base_price"` // RoomTypes.base_price
	Capacity  int    `json:"capacity"`   // RoomTypes.capacity
}

// Room is a physical room.  Status only changes through check-in and
// check-out, never through a direct write.
//
// Fields:
//
//	ID         – primary key identifier.
//	RoomNumber – unique room number, e.g. "101".
//	RoomTypeID – reference to RoomTypes.
//	Status     – Available, Occupied, Cleaning or Maintenance.
type Room struct {
	ID         uint64     `json:"id"`           // Rooms.id
	RoomNumber string     `json:"room_number"`  // Rooms.room_number
	RoomTypeID uint64     `json:"room_type_id"` // Rooms.room_type_id
	Status     RoomStatus `json:"status"`       // Rooms.status
}

// RoomWithType is a room joined with its type for display.
type RoomWithType struct {
	Room
	TypeName  string `json:"type_name"`
	BasePrice Money  `json:"base_price"`
	Capacity  int    `json:"capacity"`
}
