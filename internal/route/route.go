// Package route derives the storefront view from a URL, so a shared link
// or history navigation always lands on the same view.
package route

import (
	"net/url"
	"strconv"
	"strings"
)

// ProductParam is the query parameter carrying the product id.
const ProductParam = "product"

type Page string

const (
	PageHome        Page = "home"
	PageCollections Page = "collections"
	PageProduct     Page = "product"
	PageCart        Page = "cart"
	PageOrders      Page = "orders"
	PageAccount     Page = "account"
	PageLogin       Page = "login"
	PageThankYou    Page = "thank-you"
)

var pagesBySegment = map[string]Page{
	"collections": PageCollections,
	"cart":        PageCart,
	"orders":      PageOrders,
	"account":     PageAccount,
	"login":       PageLogin,
	"thank-you":   PageThankYou,
}

type View struct {
	Page      Page
	ProductID int64
}

// Parse maps a URL or path to a view. A positive product id in the query
// wins over the path; unknown paths are the home page.
func Parse(rawURL string) View {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return View{Page: PageHome}
	}

	if raw := u.Query().Get(ProductParam); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return View{Page: PageProduct, ProductID: id}
		}
	}

	path := strings.TrimRight(u.Path, "/")
	last := path[strings.LastIndex(path, "/")+1:]
	if p, ok := pagesBySegment[strings.ToLower(last)]; ok {
		return View{Page: p}
	}
	return View{Page: PageHome}
}

// ProductLink returns base with the product parameter set to id. Other
// query parameters on base are kept.
func ProductLink(base string, id int64) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(ProductParam, strconv.FormatInt(id, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
