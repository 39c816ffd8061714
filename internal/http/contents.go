package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmehdipour/paywall/internal/service/catalog"
	"github.com/jmehdipour/paywall/internal/service/review"
)

func getContentHandler(cat *catalog.Service, reviews *review.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		content, err := cat.GetPublished(ctx, c.Param("slug"))
		if err != nil {
			return respondErr(c, err)
		}
		rvs, err := reviews.ListApproved(ctx, content.ID)
		if err != nil {
			return respondErr(c, err)
		}
		if rvs == nil {
			rvs = []model.Review{}
		}
		return c.JSON(http.StatusOK, map[string]any{
			"content": content,
			"reviews": rvs,
		})
	}
}

func registerAccessHandler(cat *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in catalog.AccessInput
		if err := c.Bind(&in); err != nil {
			return errJSON(c, http.StatusBadRequest, "invalid body")
		}
		res, err := cat.RegisterAccess(c.Request().Context(), c.Param("slug"), in)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusCreated, res)
	}
}

func listContentsHandler(cat *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset := queryInt(c, "limit", defaultPage), queryInt(c, "offset", 0)
		items, err := cat.List(c.Request().Context(), limit, offset)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

func createContentHandler(cat *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in catalog.CreateInput
		if err := c.Bind(&in); err != nil {
			return errJSON(c, http.StatusBadRequest, "invalid body")
		}
		content, err := cat.Create(c.Request().Context(), in)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusCreated, content)
	}
}

func updateContentHandler(cat *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return errJSON(c, http.StatusBadRequest, "invalid id")
		}
		var in catalog.UpdateInput
		if err := c.Bind(&in); err != nil {
			return errJSON(c, http.StatusBadRequest, "invalid body")
		}
		content, err := cat.Update(c.Request().Context(), id, in)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, content)
	}
}

func publishContentHandler(cat *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return errJSON(c, http.StatusBadRequest, "invalid id")
		}
		content, err := cat.Publish(c.Request().Context(), id)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, content)
	}
}
