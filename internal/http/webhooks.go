package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmehdipour/paywall/internal/repository"
)

func listEventsHandler(events repository.WebhookEventsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		f := model.EventFilter{
			Status:    model.EventStatus(c.QueryParam("status")),
			EventType: c.QueryParam("type"),
			Limit:     queryInt(c, "limit", defaultPage),
			Offset:    queryInt(c, "offset", 0),
		}
		if f.Status != "" && !f.Status.Valid() {
			return errJSON(c, http.StatusBadRequest, "status must be pending, delivered or failed")
		}

		items, err := events.List(c.Request().Context(), f)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"items":  items,
			"limit":  f.Limit,
			"offset": f.Offset,
		})
	}
}

func getEventHandler(events repository.WebhookEventsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return errJSON(c, http.StatusBadRequest, "invalid id")
		}
		e, err := events.Get(c.Request().Context(), id)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, e)
	}
}

func retryEventHandler(r Retrier) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return errJSON(c, http.StatusBadRequest, "invalid id")
		}
		// the attempt is settled even if the admin disconnects mid-request
		e, err := r.RetryNow(context.WithoutCancel(c.Request().Context()), id)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, e)
	}
}

func listAttemptsHandler(attempts repository.AttemptLogRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return errJSON(c, http.StatusBadRequest, "invalid id")
		}
		if attempts == nil {
			return c.JSON(http.StatusOK, map[string]any{"items": []model.DeliveryAttempt{}})
		}
		items, err := attempts.ListByEvent(c.Request().Context(), id, queryInt(c, "limit", defaultPage))
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"items": items})
	}
}

func statsHandler(events repository.WebhookEventsRepository, attempts repository.AttemptLogRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		counts, err := events.CountByStatus(ctx)
		if err != nil {
			return respondErr(c, err)
		}

		resp := map[string]any{"by_status": counts}
		if attempts != nil {
			// the attempt log is best effort; a ClickHouse outage must not hide the MySQL numbers
			summary, err := attempts.Summary(ctx, since(c, 24*time.Hour))
			if err != nil {
				c.Logger().Warnf("attempt summary: %v", err)
			} else {
				resp["attempts"] = summary
			}
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// sweepHandler runs one cycle synchronously, detached from the caller so a
// dropped connection does not cut a delivery short.
func sweepHandler(s Sweeper) echo.HandlerFunc {
	return func(c echo.Context) error {
		stats := s.SweepOnce(context.WithoutCancel(c.Request().Context()))
		return c.JSON(http.StatusOK, stats)
	}
}
