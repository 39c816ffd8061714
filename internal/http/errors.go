package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jmehdipour/paywall/internal/auth"
	"github.com/jmehdipour/paywall/internal/repository"
	"github.com/jmehdipour/paywall/internal/service"
	"github.com/jmehdipour/paywall/internal/service/catalog"
	"github.com/jmehdipour/paywall/internal/service/payment"
	"github.com/jmehdipour/paywall/internal/service/review"
	"github.com/jmehdipour/paywall/internal/webhook"
)

func errJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}

// respondErr maps service errors onto status codes. Anything unrecognised is
// logged and answered as 500 without leaking the cause.
func respondErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, review.ErrInvalidRating):
		return errJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrAmountTooLow):
		return errJSON(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, catalog.ErrNotPublished),
		errors.Is(err, review.ErrNotPublished),
		errors.Is(err, payment.ErrUnknownPayment):
		return errJSON(c, http.StatusNotFound, "not found")
	case errors.Is(err, catalog.ErrSlugTaken),
		errors.Is(err, webhook.ErrNotRetryable),
		errors.Is(err, webhook.ErrConflict),
		errors.Is(err, webhook.ErrNotDeliverable):
		return errJSON(c, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return errJSON(c, http.StatusUnauthorized, err.Error())
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return errJSON(c, http.StatusInternalServerError, "internal error")
}

func parseInt64(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return def
	}
	return v
}
