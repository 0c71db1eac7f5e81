package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/ticket-marketplace/internal/middleware"
    "github.com/iliyamo/ticket-marketplace/internal/model"
    "github.com/iliyamo/ticket-marketplace/internal/payment"
    "github.com/iliyamo/ticket-marketplace/internal/service"
)

// Settler confirms a completed checkout session.
type Settler interface {
    Settle(ctx context.Context, sessionID string) (service.Result, error)
}

// CheckoutStarter opens a hosted checkout session.
type CheckoutStarter interface {
    Start(ctx context.Context, in service.CheckoutIntent) (payment.CheckoutSession, error)
}

// RevenueReporter builds the vendor revenue summary.
type RevenueReporter interface {
    ForVendor(ctx context.Context, vendorEmail string) (service.RevenueReport, error)
}

// UserTransactions lists a buyer's settled payments.
type UserTransactions interface {
    ListByUser(ctx context.Context, userEmail string) ([]model.Transaction, error)
}

// PaymentHandler serves checkout, payment confirmation and the payment
// history views.
type PaymentHandler struct {
    Checkout     CheckoutStarter
    Settler      Settler
    Revenue      RevenueReporter
    Transactions UserTransactions
    Cache        Purger
}

func NewPaymentHandler(checkout CheckoutStarter, settler Settler, revenue RevenueReporter, txns UserTransactions, cache Purger) *PaymentHandler {
    return &PaymentHandler{Checkout: checkout, Settler: settler, Revenue: revenue, Transactions: txns, Cache: cache}
}

type checkoutReq struct {
    BookingID   uint64          `json:"bookingId"`
    TotalPrice  decimal.Decimal `json:"totalPrice"`
    BookingQty  int             `json:"bookingQty"`
    TicketTitle string          `json:"ticketTitle" validate:"max=255"`
    Image       string          `json:"image" validate:"max=1024"`
    Customer    struct {
        Email string `json:"email"`
    } `json:"customer"`
}

// CreateCheckoutSession handles POST /create-checkout-session and returns
// the provider URL the client should redirect to.  Required field checks
// live in the checkout service so that they answer with the same error as
// every other invalid booking payload.
func (h *PaymentHandler) CreateCheckoutSession(c echo.Context) error {
    var req checkoutReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    // the token identifies the buyer; the body's customer email is only
    // used when the token carries none
    email := middleware.Email(c)
    if email == "" {
        email = req.Customer.Email
    }
    sess, err := h.Checkout.Start(c.Request().Context(), service.CheckoutIntent{
        BookingID:     req.BookingID,
        TotalPrice:    req.TotalPrice,
        Quantity:      req.BookingQty,
        TicketTitle:   req.TicketTitle,
        ImageURL:      req.Image,
        CustomerEmail: email,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"url": sess.URL, "sessionId": sess.ID})
}

type settleReq struct {
    SessionID string `json:"sessionId" validate:"required,max=255"`
}

// PaymentSuccess handles POST /payment-success.  It is safe to call any
// number of times for the same session.
func (h *PaymentHandler) PaymentSuccess(c echo.Context) error {
    var req settleReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    res, err := h.Settler.Settle(c.Request().Context(), req.SessionID)
    if err != nil {
        return respondError(c, err)
    }
    if res.Outcome == service.AlreadySettled {
        return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "already processed"})
    }
    // listed seat counts just changed
    purge(c, h.Cache)
    return c.JSON(http.StatusOK, echo.Map{
        "success":       true,
        "bookingId":     res.BookingID,
        "transactionId": res.ProviderTxnID,
        "quantity":      res.Quantity,
        "amount":        res.Amount,
    })
}

// MyTransactions handles GET /transactions/mine.
func (h *PaymentHandler) MyTransactions(c echo.Context) error {
    items, err := h.Transactions.ListByUser(c.Request().Context(), middleware.Email(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// VendorRevenue handles GET /vendor/revenue.
func (h *PaymentHandler) VendorRevenue(c echo.Context) error {
    rep, err := h.Revenue.ForVendor(c.Request().Context(), middleware.Email(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, rep)
}
