package forwarder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-zoox/headers"
	"golang.org/x/net/http/httpguts"
)

func (f *Forwarder) createRequest(ctx context.Context, originReq *http.Request) (*http.Request, error) {
	target, err := f.resolve(originReq.URL)
	if err != nil {
		return nil, newError(KindResolution, originReq.Method, originReq.URL.String(), err)
	}

	target, err = f.targetURL(target)
	if err != nil {
		return nil, newError(KindTranslation, originReq.Method, originReq.URL.String(), err)
	}

	var body io.ReadCloser = http.NoBody
	if hasBody(originReq.Method) && originReq.Body != nil && originReq.ContentLength != 0 {
		body = originReq.Body
	}

	newReq, err := http.NewRequestWithContext(ctx, originReq.Method, target.String(), body)
	if err != nil {
		return nil, newError(KindTranslation, originReq.Method, target.String(), err)
	}
	if body != http.NoBody {
		newReq.ContentLength = originReq.ContentLength
	}

	if err := copyRequestHeaders(newReq.Header, originReq.Header); err != nil {
		return nil, newError(KindTranslation, originReq.Method, target.String(), err)
	}

	if newReq.Header.Get(headers.UserAgent) == "" {
		newReq.Header.Set(headers.UserAgent, DefaultUserAgent)
	}

	return newReq, nil
}

func (f *Forwarder) resolve(u *url.URL) (*url.URL, error) {
	if f.lowercase {
		return f.rewriters.ResolveLowercase(u)
	}

	return f.rewriters.Resolve(u)
}

// targetURL places a relative rewrite target under the upstream base URL.
func (f *Forwarder) targetURL(target *url.URL) (*url.URL, error) {
	if target.IsAbs() {
		return target, nil
	}

	if f.upstream == nil {
		return nil, fmt.Errorf("relative rewrite target %s needs an upstream", target)
	}

	path, rawPath := target.Path, target.EscapedPath()
	if !strings.HasPrefix(path, "/") {
		path, rawPath = "/"+path, "/"+rawPath
	}

	u := *f.upstream
	u.Path = strings.TrimSuffix(f.upstream.Path, "/") + path
	u.RawPath = strings.TrimSuffix(f.upstream.EscapedPath(), "/") + rawPath
	u.RawQuery = target.RawQuery
	u.Fragment = ""
	return &u, nil
}

// copyRequestHeaders copies every header but Authorization.
func copyRequestHeaders(dst, src http.Header) error {
	for k, vv := range src {
		if http.CanonicalHeaderKey(k) == headers.Authorization {
			continue
		}

		if !httpguts.ValidHeaderFieldName(k) {
			return fmt.Errorf("invalid header name %q", k)
		}
		for _, v := range vv {
			if !httpguts.ValidHeaderFieldValue(v) {
				return fmt.Errorf("invalid value for header %q", k)
			}
		}

		dst[k] = append([]string(nil), vv...)
	}

	return nil
}

func hasBody(method string) bool {
	for _, m := range bodylessMethods {
		if strings.EqualFold(method, m) {
			return false
		}
	}

	return true
}
