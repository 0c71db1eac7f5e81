package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Booking statuses.  pending moves to accepted or rejected by the vendor;
// any non-paid status moves to paid on settlement.  paid is terminal.
const (
    BookingPending  = "pending"
    BookingAccepted = "accepted"
    BookingRejected = "rejected"
    BookingPaid     = "paid"
)

// Payment statuses of a booking.
const (
    PaymentUnpaid = "unpaid"
    PaymentPaid   = "paid"
)

// Booking records a user's request to buy Quantity seats of a ticket.
//
// Fields:
//  ID            – primary key identifier.
//  TicketID      – booked ticket.
//  UserEmail     – buyer.
//  VendorEmail   – ticket owner at booking time.
//  Quantity      – seats requested.
//  TotalPrice    – unit price × quantity at booking time.
//  Status        – pending | accepted | rejected | paid.
//  PaymentStatus – unpaid | paid.
//  TransactionID – provider transaction id, set by settlement.
//  CreatedAt     – creation timestamp.
//  PaidAt        – settlement timestamp.
type Booking struct {
    ID            uint64          `json:"id"`
    TicketID      uint64          `json:"ticketId"`
    UserEmail     string          `json:"userEmail"`
    VendorEmail   string          `json:"vendorEmail"`
    Quantity      int             `json:"quantity"`
    TotalPrice    decimal.Decimal `json:"totalPrice"`
    Status        string          `json:"status"`
    PaymentStatus string          `json:"paymentStatus"`
    TransactionID *string         `json:"transactionId,omitempty"`
    CreatedAt     time.Time       `json:"createdAt"`
    PaidAt        *time.Time      `json:"paidAt,omitempty"`
}

// CanTransition reports whether a booking in status from may move to to.
func CanTransition(from, to string) bool {
    switch {
    case from == BookingPaid:
        return false
    case to == BookingPaid:
        return true
    case from == BookingPending && (to == BookingAccepted || to == BookingRejected):
        return true
    }
    return false
}

// BookingView joins a booking with the ticket fields shown in listings.
type BookingView struct {
    Booking
    TicketTitle string    `json:"ticketTitle"`
    Origin      string    `json:"from"`
    Destination string    `json:"to"`
    DepartureAt time.Time `json:"departureAt"`
    ImageURL    string    `json:"image"`
}
