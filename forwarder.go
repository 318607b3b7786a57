package forwarder

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-zoox/forwarder/utils/rewriter"
	"github.com/go-zoox/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// Forwarder rewrites request paths with an ordered rewrite table and relays
// matching requests to their upstream. Requests it cannot forward are handed,
// untouched, to the next handler.
type Forwarder struct {
	rewriters rewriter.Rewriters
	upstream  *url.URL
	transport http.RoundTripper
	next      http.Handler
	onError   func(err error, req *http.Request)
	lowercase bool

	bufferPool BufferPool
	metrics    *metrics
}

// Config is the configuration for the Forwarder.
type Config struct {
	// Rewrites is the ordered rewrite table. The first matching rule wins.
	// It is copied by New and never changes afterwards.
	Rewrites rewriter.Rewriters

	// Upstream is the base URL that relative rewrite targets are sent to,
	// e.g. http://127.0.0.1:8080. Rules whose target is an absolute URI
	// ignore it.
	Upstream string

	// Transport performs the upstream round trip. It is shared by all
	// requests. Default is a clone of http.DefaultTransport with
	// compression disabled, so encoded bodies are relayed verbatim.
	Transport http.RoundTripper

	// Next handles requests that are not forwarded when ServeHTTP is used.
	// Default is http.NotFoundHandler().
	Next http.Handler

	// LowercaseRewrite enables the legacy substitution which lowercases the
	// whole path and query before replacing the pattern.
	// Default is false, which keeps the casing of everything but the prefix.
	LowercaseRewrite bool

	// OnError is called with an *Error each time a request falls through.
	// Default logs it.
	OnError func(err error, req *http.Request)

	// Registerer registers the forwarder metrics. Default is no registration.
	Registerer prometheus.Registerer

	// BufferPool provides buffers for copying response bodies.
	BufferPool BufferPool
}

// New creates a new Forwarder.
//
// Example:
//
//	f := New(&Config{
//		Upstream: "http://127.0.0.1:8080",
//		Rewrites: rewriter.Rewriters{
//			{From: "/api/old", To: "/api/new"},
//			{From: "/svc", To: "http://svc.internal:9000/internal-svc"},
//		},
//	})
//
//	http.ListenAndServe(":9999", f)
func New(cfg *Config) *Forwarder {
	var upstream *url.URL
	if cfg.Upstream != "" {
		u, err := url.Parse(cfg.Upstream)
		if err != nil {
			panic(fmt.Errorf("invalid forwarder upstream: %s", err))
		}
		if !u.IsAbs() || u.Host == "" {
			panic(fmt.Errorf("invalid forwarder upstream: %s is not an absolute url", cfg.Upstream))
		}

		upstream = u
	}

	transport := cfg.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DisableCompression = true
		transport = t
	}

	next := cfg.Next
	if next == nil {
		next = http.NotFoundHandler()
	}

	onError := cfg.OnError
	if onError == nil {
		onError = defaultOnError
	}

	return &Forwarder{
		rewriters:  append(rewriter.Rewriters{}, cfg.Rewrites...),
		upstream:   upstream,
		transport:  transport,
		next:       next,
		onError:    onError,
		lowercase:  cfg.LowercaseRewrite,
		bufferPool: cfg.BufferPool,
		metrics:    newMetrics(cfg.Registerer),
	}
}

// ServeHTTP forwards the request, or passes it to Config.Next.
func (f *Forwarder) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	f.Handle(rw, req, f.next)
}

// Middleware returns a handler that forwards matching requests and passes
// the rest to next.
func (f *Forwarder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		f.Handle(rw, req, next)
	})
}

// Handle forwards req to its upstream and writes the upstream response to rw.
// When the request cannot be resolved, built or sent, nothing is written and
// next handles the request instead. A nil next means Config.Next.
func (f *Forwarder) Handle(rw http.ResponseWriter, req *http.Request, next http.Handler) {
	if next == nil {
		next = f.next
	}

	outReq, err := f.createRequest(req.Context(), req)
	if err != nil {
		f.passThrough(err, rw, req, next)
		return
	}

	start := time.Now()
	res, err := f.createResponse(outReq)
	if err != nil {
		f.passThrough(newError(KindForwarding, outReq.Method, outReq.URL.String(), err), rw, req, next)
		return
	}
	defer res.Body.Close()

	f.metrics.duration.Observe(time.Since(start).Seconds())
	f.metrics.requests.WithLabelValues(outcomeForwarded).Inc()
	logger.Infof("[forwarder] %s %s => %s %d", req.Method, req.URL.RequestURI(), outReq.URL.String(), res.StatusCode)

	f.writeResponse(rw, res, req)
}

func (f *Forwarder) passThrough(err error, rw http.ResponseWriter, req *http.Request, next http.Handler) {
	kind := KindTranslation
	var errX *Error
	if errors.As(err, &errX) {
		kind = errX.Kind
	} else {
		err = newError(kind, req.Method, req.URL.String(), err)
	}

	f.metrics.requests.WithLabelValues(kind.String()).Inc()
	f.onError(err, req)

	next.ServeHTTP(rw, req)
}

func defaultOnError(err error, req *http.Request) {
	var errX *Error
	if errors.As(err, &errX) && errX.Kind == KindResolution {
		logger.Debugf("[forwarder] pass through: %s", err)
		return
	}

	logger.Errorf("[forwarder] pass through: %s", err)
}
