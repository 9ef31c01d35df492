package mercadopago

import (
	"net/http"
	"net/url"
)

type idempotencyKey struct{}

// requester is the transport handed to the SDK. It pins the idempotency key
// of the checkout attempt and redirects calls when a base URL is configured.
type requester struct {
	http *http.Client
	base *url.URL
}

func (r *requester) Do(req *http.Request) (*http.Response, error) {
	if key, ok := req.Context().Value(idempotencyKey{}).(string); ok && key != "" {
		req.Header.Set("X-Idempotency-Key", key)
	}
	if r.base != nil {
		req.URL.Scheme = r.base.Scheme
		req.URL.Host = r.base.Host
		req.URL.Path = r.base.Path + req.URL.Path
		req.Host = r.base.Host
	}
	return r.http.Do(req)
}
