package fetch

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// DefaultCacheBustParam is the query parameter carrying the request time.
const DefaultCacheBustParam = "timestamp"

// CacheBust appends param=<unix milliseconds of t> to location, keeping any
// query the location already has.
func CacheBust(location, param string, t time.Time) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("unable to parse location %q: %w", location, err)
	}
	pair := url.QueryEscape(param) + "=" + strconv.FormatInt(t.UnixMilli(), 10)
	if u.RawQuery == "" {
		u.RawQuery = pair
	} else {
		u.RawQuery += "&" + pair
	}
	return u.String(), nil
}
