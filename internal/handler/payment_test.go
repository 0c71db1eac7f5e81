package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/ticket-marketplace/internal/model"
    "github.com/iliyamo/ticket-marketplace/internal/payment"
    "github.com/iliyamo/ticket-marketplace/internal/repository"
    "github.com/iliyamo/ticket-marketplace/internal/service"
)

type stubSettler struct {
    res service.Result
    err error
    got string
}

func (s *stubSettler) Settle(_ context.Context, id string) (service.Result, error) {
    s.got = id
    return s.res, s.err
}

type stubCheckout struct {
    got service.CheckoutIntent
    err error
}

func (s *stubCheckout) Start(_ context.Context, in service.CheckoutIntent) (payment.CheckoutSession, error) {
    s.got = in
    if s.err != nil {
        return payment.CheckoutSession{}, s.err
    }
    return payment.CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil
}

type stubRevenue struct{ rep service.RevenueReport }

func (s stubRevenue) ForVendor(context.Context, string) (service.RevenueReport, error) { return s.rep, nil }

type stubTxns struct{ items []model.Transaction }

func (s stubTxns) ListByUser(context.Context, string) ([]model.Transaction, error) { return s.items, nil }

type countingPurger struct{ n int }

func (p *countingPurger) Purge(context.Context) error { p.n++; return nil }

func newTestEcho() *echo.Echo {
    e := echo.New()
    e.Validator = NewValidator()
    return e
}

// asUser injects the identity JWTAuth would have set.
func asUser(email string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            c.Set("email", email)
            return next(c)
        }
    }
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestPaymentSuccess(t *testing.T) {
    cases := []struct {
        name   string
        res    service.Result
        err    error
        status int
        body   string
        purged int
    }{
        {"settled", service.Result{Outcome: service.Settled, BookingID: 1, ProviderTxnID: "pi_1", Quantity: 2, Amount: decimal.NewFromInt(40)},
            nil, http.StatusOK, `"success":true`, 1},
        {"already settled", service.Result{Outcome: service.AlreadySettled}, nil, http.StatusOK, `"message":"already processed"`, 0},
        {"not paid", service.Result{}, fmt.Errorf("%w: status %q", service.ErrPaymentNotCompleted, "unpaid"), http.StatusBadRequest, `"error"`, 0},
        {"invalid metadata", service.Result{}, service.ErrInvalidMetadata, http.StatusBadRequest, `"error"`, 0},
        {"expired", service.Result{}, service.ErrExpiredBooking, http.StatusBadRequest, `"error"`, 0},
        {"booking missing", service.Result{}, service.ErrBookingNotFound, http.StatusNotFound, `"error"`, 0},
        {"oversell", service.Result{}, service.ErrConflict, http.StatusConflict, `"error"`, 0},
        {"provider down", service.Result{}, service.ErrProviderUnavailable, http.StatusInternalServerError, `payment provider unavailable`, 0},
        {"store down", service.Result{}, errors.New("db gone"), http.StatusInternalServerError, `internal error`, 0},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            st := &stubSettler{res: tc.res, err: tc.err}
            p := &countingPurger{}
            h := NewPaymentHandler(&stubCheckout{}, st, stubRevenue{}, stubTxns{}, p)
            e := newTestEcho()
            e.POST("/payment-success", h.PaymentSuccess, asUser("buyer@example.com"))

            rec := postJSON(e, "/payment-success", `{"sessionId":"cs_1"}`)
            assert.Equal(t, tc.status, rec.Code)
            assert.Contains(t, rec.Body.String(), tc.body)
            assert.Equal(t, "cs_1", st.got)
            assert.Equal(t, tc.purged, p.n)
        })
    }
}

func TestPaymentSuccess_MissingSessionID(t *testing.T) {
    st := &stubSettler{}
    h := NewPaymentHandler(&stubCheckout{}, st, stubRevenue{}, stubTxns{}, nil)
    e := newTestEcho()
    e.POST("/payment-success", h.PaymentSuccess)

    rec := postJSON(e, "/payment-success", `{}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Empty(t, st.got, "settler must not be called")
}

func TestCreateCheckoutSession(t *testing.T) {
    co := &stubCheckout{}
    h := NewPaymentHandler(co, &stubSettler{}, stubRevenue{}, stubTxns{}, nil)
    e := newTestEcho()
    e.POST("/create-checkout-session", h.CreateCheckoutSession, asUser("buyer@example.com"))

    rec := postJSON(e, "/create-checkout-session",
        `{"bookingId":7,"totalPrice":40,"bookingQty":2,"ticketTitle":"Dhaka to Sylhet","image":"","customer":{"email":"spoof@example.com"}}`)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"url":"https://checkout.example/cs_1"`)
    assert.Equal(t, uint64(7), co.got.BookingID)
    assert.Equal(t, 2, co.got.Quantity)
    assert.True(t, co.got.TotalPrice.Equal(decimal.NewFromInt(40)))
    assert.Equal(t, "buyer@example.com", co.got.CustomerEmail, "token email wins over the body")
}

func TestCreateCheckoutSession_InvalidBookingInfo(t *testing.T) {
    co := &stubCheckout{err: fmt.Errorf("%w: bookingQty must be positive", service.ErrInvalidBookingInfo)}
    h := NewPaymentHandler(co, &stubSettler{}, stubRevenue{}, stubTxns{}, nil)
    e := newTestEcho()
    e.POST("/create-checkout-session", h.CreateCheckoutSession, asUser("buyer@example.com"))

    rec := postJSON(e, "/create-checkout-session", `{"bookingId":7,"totalPrice":40,"bookingQty":0}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVendorRevenue(t *testing.T) {
    rep := service.RevenueReport{
        TotalRevenue:     decimal.RequireFromString("55.60"),
        TotalTicketsSold: 4,
        Transactions:     []model.Transaction{},
    }
    h := NewPaymentHandler(&stubCheckout{}, &stubSettler{}, stubRevenue{rep: rep}, stubTxns{}, nil)
    e := newTestEcho()
    e.GET("/vendor/revenue", h.VendorRevenue, asUser("vendor@example.com"))

    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vendor/revenue", nil))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"totalRevenue":"55.6"`)
    assert.Contains(t, rec.Body.String(), `"totalTicketsSold":4`)
}

func TestRespondError_RepositoryErrors(t *testing.T) {
    cases := map[error]int{
        repository.ErrNotFound:  http.StatusNotFound,
        repository.ErrForbidden: http.StatusForbidden,
        repository.ErrConflict:  http.StatusConflict,
        repository.ErrDuplicate: http.StatusConflict,
    }
    for err, want := range cases {
        e := newTestEcho()
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
        require.NoError(t, respondError(c, err))
        assert.Equal(t, want, c.Response().Status, err.Error())
    }
}

func TestPathID(t *testing.T) {
    e := newTestEcho()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
    c.SetParamNames("id")

    c.SetParamValues("42")
    id, ok := pathID(c, "id")
    assert.True(t, ok)
    assert.Equal(t, uint64(42), id)

    for _, bad := range []string{"0", "-1", "abc", ""} {
        c.SetParamValues(bad)
        _, ok := pathID(c, "id")
        assert.False(t, ok, bad)
    }
}
