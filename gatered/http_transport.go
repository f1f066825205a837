package gatered

import (
	"net/http"
)

// HTTPTransport defines an interface for the http.RoundTripper functionality.
// This interface is used for easier testing of HTTP clients.
type HTTPTransport interface {
	http.RoundTripper
}
