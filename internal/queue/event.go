// Package queue defines message payloads exchanged over the message broker
// and the RabbitMQ publisher and consumer that carry them.
package queue

// BookingPaidEvent is published after a settlement commits.  It carries
// enough for downstream consumers to log, notify or feed analytics without
// querying the primary database.
type BookingPaidEvent struct {
    EventID       string `json:"event_id"`
    BookingID     uint64 `json:"booking_id"`
    TicketID      uint64 `json:"ticket_id"`
    TicketTitle   string `json:"ticket_title"`
    UserEmail     string `json:"user_email"`
    VendorEmail   string `json:"vendor_email"`
    Quantity      int    `json:"quantity"`
    Amount        string `json:"amount"` // decimal string, e.g. "40.00"
    ProviderTxnID string `json:"provider_txn_id"`
    PaidAt        string `json:"paid_at"` // RFC 3339
}
