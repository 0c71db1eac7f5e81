package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// VendorTransactions lists the transactions credited to a vendor.
type VendorTransactions interface {
	ListByVendor(ctx context.Context, vendorEmail string) ([]model.Transaction, error)
}

// VendorTickets counts a vendor's listings.
type VendorTickets interface {
	CountByVendor(ctx context.Context, vendorEmail string) (int64, error)
}

// RevenueReport is the vendor dashboard summary.
type RevenueReport struct {
	TotalRevenue      decimal.Decimal     `json:"totalRevenue"`
	TotalTicketsSold  int                 `json:"totalTicketsSold"`
	TotalTicketsAdded int64               `json:"totalTicketsAdded"`
	Transactions      []model.Transaction `json:"transactions"`
}

// Revenue aggregates settled transactions per vendor.
type Revenue struct {
	transactions VendorTransactions
	tickets      VendorTickets
}

func NewRevenue(transactions VendorTransactions, tickets VendorTickets) *Revenue {
	return &Revenue{transactions: transactions, tickets: tickets}
}

// ForVendor sums amount and quantity over exactly the transactions it
// returns, so the totals always match the listed log.
func (r *Revenue) ForVendor(ctx context.Context, vendorEmail string) (RevenueReport, error) {
	txns, err := r.transactions.ListByVendor(ctx, vendorEmail)
	if err != nil {
		return RevenueReport{}, fmt.Errorf("list transactions: %w", err)
	}
	added, err := r.tickets.CountByVendor(ctx, vendorEmail)
	if err != nil {
		return RevenueReport{}, fmt.Errorf("count tickets: %w", err)
	}
	rep := RevenueReport{TotalRevenue: decimal.Zero, TotalTicketsAdded: added, Transactions: txns}
	if rep.Transactions == nil {
		rep.Transactions = []model.Transaction{}
	}
	for _, t := range txns {
		rep.TotalRevenue = rep.TotalRevenue.Add(t.Amount)
		rep.TotalTicketsSold += t.Quantity
	}
	return rep, nil
}
