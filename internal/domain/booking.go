package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID         int64         `json:"id"`
	Locator    string        `json:"locator"`
	UserID     int64         `json:"user_id"`
	FlightID   int64         `json:"flight_id"`
	SeatNumber string        `json:"seat_number"`
	Status     BookingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}

// BookingView is the admin listing row, joined across booking, flight and user.
type BookingView struct {
	ID            int64     `json:"id"`
	Locator       string    `json:"locator"`
	SeatNumber    string    `json:"seat_number"`
	PassengerName string    `json:"passenger_name"`
	FlightNumber  string    `json:"flight_number"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type FlightPopularity struct {
	FlightNumber string `json:"flight_number"`
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	TicketCount  int64  `json:"ticket_count"`
}

// Stats aggregates the ledger: revenue over confirmed bookings, a per-status
// breakdown and the most booked flights.
type Stats struct {
	RevenueCents    int64                   `json:"revenue_cents"`
	StatusBreakdown map[BookingStatus]int64 `json:"status_breakdown"`
	TopFlights      []FlightPopularity      `json:"top_flights"`
}
