package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

const defaultPageSize = 20

// pageParams is the decoded page/size query pair. Pagination is off
// unless at least one of the two parameters is present.
type pageParams struct {
	enabled bool
	page    int
	size    int
}

func (p pageParams) limit() int {
	if !p.enabled {
		return 0
	}
	return p.size
}

func (p pageParams) offset() int {
	if !p.enabled {
		return 0
	}
	return p.page * p.size
}

// parsePageParams reads the optional page and size query parameters.
// Invalid values are reported as a client error.
func parsePageParams(r *http.Request) (pageParams, error) {
	q := r.URL.Query()
	rawPage, hasPage := q.Get("page"), q.Has("page")
	rawSize, hasSize := q.Get("size"), q.Has("size")
	if !hasPage && !hasSize {
		return pageParams{}, nil
	}

	p := pageParams{enabled: true, size: defaultPageSize}
	if hasPage {
		page, err := strconv.Atoi(rawPage)
		if err != nil || page < 0 {
			return pageParams{}, errors.Errorf("invalid page %q", rawPage)
		}
		p.page = page
	}
	if hasSize {
		size, err := strconv.Atoi(rawSize)
		if err != nil || size < 1 {
			return pageParams{}, errors.Errorf("invalid size %q", rawSize)
		}
		p.size = size
	}
	return p, nil
}

// writePageHeaders emits the pagination headers. Without pagination only
// the total item count is reported.
func writePageHeaders(w http.ResponseWriter, r *http.Request, p pageParams, total int64) {
	h := w.Header()
	h.Set("X-Total-Items", strconv.FormatInt(total, 10))
	if !p.enabled {
		return
	}

	lastPage := 0
	if total > 0 {
		lastPage = int((total - 1) / int64(p.size))
	}
	h.Set("X-Page", strconv.Itoa(p.page))
	h.Set("X-Page-Size", strconv.Itoa(p.size))
	h.Set("X-Total-Pages", strconv.Itoa(lastPage+1))

	links := []string{
		pageLink(r, p.page, p.size, "self"),
		pageLink(r, 0, p.size, "first"),
		pageLink(r, lastPage, p.size, "last"),
	}
	if p.page > 0 {
		links = append(links, pageLink(r, p.page-1, p.size, "prev"))
	}
	if p.page < lastPage {
		links = append(links, pageLink(r, p.page+1, p.size, "next"))
	}
	h.Set("Link", strings.Join(links, ", "))
}

// pageLink renders one RFC 8288 link target for the request URL with
// the page parameters replaced.
func pageLink(r *http.Request, page, size int, rel string) string {
	u := *r.URL
	q := url.Values{}
	for k, vs := range u.Query() {
		if k == "page" || k == "size" {
			continue
		}
		q[k] = vs
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	u.RawQuery = q.Encode()
	return fmt.Sprintf("<%s>; rel=\"%s\"", u.String(), rel)
}
