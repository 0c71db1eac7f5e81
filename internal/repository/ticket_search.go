package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// TicketSearchQuery defines filters & pagination for the public listing.
type TicketSearchQuery struct {
	From      string
	To        string
	Transport string
	Sort      string // price_asc | price_desc | "" (newest first)
	Page      int
	PageSize  int
}

// SearchApproved returns approved, visible tickets matching q together with
// the total number of matches.
func (r *TicketRepo) SearchApproved(ctx context.Context, q TicketSearchQuery) ([]model.Ticket, int64, error) {
	where := []string{"verification_status = 'approved'", "hidden = 0"}
	args := []any{}

	if q.From != "" {
		where = append(where, "LOWER(origin) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.From)+"%")
	}
	if q.To != "" {
		where = append(where, "LOWER(destination) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.To)+"%")
	}
	if q.Transport != "" {
		where = append(where, "transport_type = ?")
		args = append(args, strings.ToLower(q.Transport))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tickets WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "created_at DESC, id DESC"
	switch strings.ToLower(q.Sort) {
	case "price_asc":
		order = "price ASC, id ASC"
	case "price_desc":
		order = "price DESC, id DESC"
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE "+cond+" ORDER BY "+order+" LIMIT ? OFFSET ?", argsData...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
