package helpers

import (
	"strconv"
	"time"

	"cashier/services"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

// PageParams reads page and page_size. Bad or missing values fall back to the
// service defaults.
func PageParams(c *fiber.Ctx) services.Page {
	return services.Page{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", services.DefaultPageSize),
	}
}

func UintParam(c *fiber.Ctx, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

// UintQuery returns nil when the query key is absent.
func UintQuery(c *fiber.Ctx, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, false
	}
	id := uint(v)
	return &id, true
}

// DateRange parses start_date and end_date as calendar days. The end day is
// inclusive, so the returned bound is the following midnight.
func DateRange(c *fiber.Ctx) (services.SummaryRange, bool) {
	var r services.SummaryRange
	if raw := c.Query("start_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return r, false
		}
		r.Start = &t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return r, false
		}
		t = t.AddDate(0, 0, 1)
		r.End = &t
	}
	return r, true
}
