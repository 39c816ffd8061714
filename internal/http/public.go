package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jmehdipour/paywall/internal/auth"
	"github.com/jmehdipour/paywall/internal/service/contact"
	"github.com/jmehdipour/paywall/internal/service/payment"
	"github.com/jmehdipour/paywall/internal/service/review"
)

func submitReviewHandler(reviews *review.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in review.SubmitInput
		if err := c.Bind(&in); err != nil {
			return errJSON(c, http.StatusBadRequest, "invalid body")
		}
		rv, err := reviews.Submit(c.Request().Context(), c.Param("slug"), in)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusCreated, rv)
	}
}

func approveReviewHandler(reviews *review.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return errJSON(c, http.StatusBadRequest, "invalid id")
		}
		rv, err := reviews.Approve(c.Request().Context(), id)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, rv)
	}
}

func deleteReviewHandler(reviews *review.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return errJSON(c, http.StatusBadRequest, "invalid id")
		}
		if err := reviews.Delete(c.Request().Context(), id); err != nil {
			return respondErr(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func contactHandler(svc *contact.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in contact.Input
		if err := c.Bind(&in); err != nil {
			return errJSON(c, http.StatusBadRequest, "invalid body")
		}
		m, err := svc.Submit(c.Request().Context(), in)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusCreated, map[string]any{"id": m.ID})
	}
}

type callbackRequest struct {
	PaymentID string `json:"payment_id"`
	ID        string `json:"id"`
}

// paymentCallbackHandler only takes the gateway id from the body; the status
// is fetched from the gateway by the payment service.
func paymentCallbackHandler(payments PaymentHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req callbackRequest
		if err := c.Bind(&req); err != nil {
			return errJSON(c, http.StatusBadRequest, "invalid body")
		}
		id := strings.TrimSpace(req.PaymentID)
		if id == "" {
			id = strings.TrimSpace(req.ID)
		}
		if id == "" {
			return errJSON(c, http.StatusBadRequest, "payment id is required")
		}

		p, err := payments.HandleStatus(c.Request().Context(), id, payment.ChannelHTTP)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"reference": p.Reference, "status": p.Status})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func loginHandler(svc *auth.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := c.Bind(&req); err != nil {
			return errJSON(c, http.StatusBadRequest, "invalid body")
		}
		if req.Email == "" || req.Password == "" {
			return errJSON(c, http.StatusBadRequest, "email and password are required")
		}
		tok, err := svc.Login(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, tok)
	}
}
