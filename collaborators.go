package disorder

import "context"

// EndpointResolver turns a normalized code into a fetchable lookup URL.
type EndpointResolver interface {
	DisorderDetailsURL(code Code) string
}

// EndpointFunc adapts a function to the EndpointResolver interface.
type EndpointFunc func(code Code) string

// DisorderDetailsURL calls f(code).
func (f EndpointFunc) DisorderDetailsURL(code Code) string { return f(code) }

// Client performs the GET for a lookup URL. A nil error means success and
// body holds the response; any error is a failed request.
type Client interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, url string) ([]byte, error)

// Get calls f(ctx, url).
func (f ClientFunc) Get(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }
