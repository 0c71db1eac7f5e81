package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Transaction is the immutable record of a settled payment.  ProviderTxnID
// is unique across the table; it is what makes settlement idempotent.
type Transaction struct {
    ID            uint64          `json:"id"`
    ProviderTxnID string          `json:"transactionId"`
    BookingID     uint64          `json:"bookingId"`
    UserEmail     string          `json:"userEmail"`
    VendorEmail   string          `json:"vendorEmail"`
    Amount        decimal.Decimal `json:"amount"`
    Quantity      int             `json:"quantity"`
    TicketTitle   string          `json:"ticketTitle"`
    PaidAt        time.Time       `json:"paidAt"`
}
