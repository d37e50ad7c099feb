// Package geo copies a configured set of upstream geo headers onto the
// outbound response without interpreting them (SPEC_FULL.md §4.2),
// grounded on original_source's copy_geo_headers in crates/common/src/
// geo.rs. Sourcing those headers (the edge platform's own geo lookup)
// stays out of scope, matching spec.md's pass-through stance.
package geo

import "net/http"

// Headers are the geo headers copied verbatim when present on the
// inbound request.
var Headers = []string{
	"X-Geo-City",
	"X-Geo-Country",
	"X-Geo-Continent",
	"X-Geo-Coordinates",
	"X-Geo-Metro-Code",
	"X-Geo-Info-Available",
}

// CopyHeaders copies every header in Headers present on req onto resp, in
// whatever form the edge platform set them. Absent headers are skipped.
func CopyHeaders(req *http.Request, resp http.Header) {
	for _, name := range Headers {
		if v := req.Header.Get(name); v != "" {
			resp.Set(name, v)
		}
	}
}
