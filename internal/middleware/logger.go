package middleware

import (
    "log/slog"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
)

// RequestID tags every request with a UUID unless the client sent one.
func RequestID() echo.MiddlewareFunc {
    return echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString})
}

// RequestLogger writes one structured line per request to log.
func RequestLogger(log *slog.Logger) echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogMethod:    true,
        LogURI:       true,
        LogStatus:    true,
        LogLatency:   true,
        LogRemoteIP:  true,
        LogRequestID: true,
        LogError:     true,
        HandleError:  true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            attrs := []any{
                "method", v.Method,
                "uri", v.URI,
                "status", v.Status,
                "latency_ms", v.Latency.Milliseconds(),
                "ip", v.RemoteIP,
                "request_id", v.RequestID,
            }
            if e := Email(c); e != "" {
                attrs = append(attrs, "user", e)
            }
            if v.Error != nil {
                log.Error("request", append(attrs, "error", v.Error.Error())...)
                return nil
            }
            log.Info("request", attrs...)
            return nil
        },
    })
}
