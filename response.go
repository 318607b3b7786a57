package forwarder

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-zoox/headers"
	"github.com/go-zoox/logger"
)

func (f *Forwarder) createResponse(req *http.Request) (*http.Response, error) {
	// execute request
	res, err := f.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode == http.StatusSwitchingProtocols {
		res.Body.Close()
		return nil, fmt.Errorf("upstream switched protocols to %q, upgrades are not supported", res.Header.Get("Upgrade"))
	}

	return res, nil
}

func (f *Forwarder) writeResponse(rw http.ResponseWriter, res *http.Response, req *http.Request) {
	// headers
	copyHeaders(rw.Header(), res.Header)
	rw.Header().Del(headers.TransferEncoding)

	// The "Trailer" header isn't included in the Transport's response.
	// Build it up from Trailer.
	announcedTrailers := len(res.Trailer)
	if announcedTrailers > 0 {
		trailerKeys := make([]string, 0, len(res.Trailer))
		for k := range res.Trailer {
			trailerKeys = append(trailerKeys, k)
		}
		rw.Header().Add("Trailer", strings.Join(trailerKeys, ", "))
	}

	// status
	rw.WriteHeader(res.StatusCode)

	// body
	if err := f.copyResponse(rw, res.Body, flushInterval(res)); err != nil {
		// The status line is already out, so the next handler can no longer
		// take over. Abort the connection so the caller sees a truncated body.
		logger.Warnf("[forwarder] %s %s: copy response body: %v", req.Method, req.URL.RequestURI(), err)
		if shouldPanicOnCopyError(req) {
			panic(http.ErrAbortHandler)
		}
		return
	}

	res.Body.Close() // close now, instead of defer, to populate res.Trailer
	if len(res.Trailer) > 0 {
		// Force chunking if we saw a response trailer.
		if fl, ok := rw.(http.Flusher); ok {
			fl.Flush()
		}
	}

	updateResponseTrailerHeaders(rw, res, announcedTrailers)
}
