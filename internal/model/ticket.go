package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Verification states of a ticket listing.
const (
    TicketPending  = "pending"
    TicketApproved = "approved"
    TicketRejected = "rejected"
)

// MaxAdvertised caps how many tickets can be advertised at once.
const MaxAdvertised = 6

// Transport categories accepted on ticket creation.
var TransportTypes = []string{"bus", "train", "launch", "plane"}

// Ticket represents a vendor's listing in the `tickets` table.  Quantity
// is the remaining inventory; it never drops below zero and only
// settlement decrements it.
//
// Fields:
//  ID                 – primary key identifier.
//  VendorEmail        – owner of the listing.
//  Title              – display title, copied onto transactions.
//  Origin/Destination – route.
//  TransportType      – bus | train | launch | plane.
//  Price              – unit price.
//  Quantity           – seats still for sale.
//  DepartureAt        – bookings are refused and settlement fails once passed.
//  Advertised         – shown on the home page; at most MaxAdvertised.
//  VerificationStatus – pending | approved | rejected, set by admins.
//  Hidden             – set when the vendor is flagged as fraud.
type Ticket struct {
    ID                 uint64          `json:"id"`
    VendorEmail        string          `json:"vendorEmail"`
    VendorName         string          `json:"vendorName"`
    Title              string          `json:"title"`
    Origin             string          `json:"from"`
    Destination        string          `json:"to"`
    TransportType      string          `json:"transportType"`
    Price              decimal.Decimal `json:"price"`
    Quantity           int             `json:"quantity"`
    DepartureAt        time.Time       `json:"departureAt"`
    Perks              string          `json:"perks"`
    ImageURL           string          `json:"image"`
    Advertised         bool            `json:"advertised"`
    VerificationStatus string          `json:"verificationStatus"`
    Hidden             bool            `json:"hidden"`
    CreatedAt          time.Time       `json:"createdAt"`
}

// Departed reports whether the ticket's departure is at or before now.
func (t Ticket) Departed(now time.Time) bool {
    return !t.DepartureAt.After(now)
}
