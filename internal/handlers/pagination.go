package handlers

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"foodgram/internal/repositories"
)

const maxPageSize = 100

// pageResponse is the envelope of every paginated list.
type pageResponse struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// Paginator reads ?page= and ?limit= and builds page envelopes.
type Paginator struct {
	DefaultSize int
}

// Page returns the requested page. Invalid values fall back to the defaults.
func (p Paginator) Page(c *fiber.Ctx) repositories.Page {
	number := c.QueryInt("page", 1)
	if number < 1 {
		number = 1
	}
	size := c.QueryInt("limit", p.DefaultSize)
	if size < 1 {
		size = p.DefaultSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return repositories.Page{Number: number, Size: size}
}

// Respond writes results wrapped in the page envelope with absolute links.
func (p Paginator) Respond(c *fiber.Ctx, page repositories.Page, total int64, results interface{}) error {
	resp := pageResponse{Count: total, Results: results}
	if int64(page.Number*page.Size) < total {
		next := pageURL(c, page.Number+1)
		resp.Next = &next
	}
	if page.Number > 1 {
		prev := pageURL(c, page.Number-1)
		resp.Previous = &prev
	}
	return c.JSON(resp)
}

// pageURL is the current URL with the page parameter replaced. Page 1 drops it.
func pageURL(c *fiber.Ctx, number int) string {
	query, _ := url.ParseQuery(string(c.Request().URI().QueryString()))
	if number <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(number))
	}
	u := c.BaseURL() + c.Path()
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}
