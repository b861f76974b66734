package ingest

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrNonPublicAddress is returned when a request targets a loopback,
// private, link-local or otherwise internal address.
var ErrNonPublicAddress = errors.New("address is not publicly routable")

var sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// IsPublicIP reports whether ip may be fetched on behalf of a remote caller.
func IsPublicIP(ip net.IP) bool {
	switch {
	case ip == nil,
		ip.IsLoopback(),
		ip.IsPrivate(),
		ip.IsLinkLocalUnicast(),
		ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(),
		ip.IsMulticast(),
		ip.IsUnspecified(),
		sharedAddressSpace.Contains(ip):
		return false
	}
	return true
}

// CheckPublicURL rejects non-http(s) URLs and URLs whose host is localhost
// or a literal non-public IP. Hostnames are not resolved here; the client
// from NewPublicHTTPClient checks the resolved address when dialing.
func CheckPublicURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return errors.New("url has no host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%s: %w", host, ErrNonPublicAddress)
	}
	if ip := net.ParseIP(host); ip != nil && !IsPublicIP(ip) {
		return fmt.Errorf("%s: %w", host, ErrNonPublicAddress)
	}
	return nil
}

// NewPublicHTTPClient is NewHTTPClient restricted to public addresses. The
// check runs on every dialed connection, so redirects and DNS answers
// pointing inward are refused too.
func NewPublicHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   refuseNonPublic,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(transport),
	}
}

func refuseNonPublic(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if !IsPublicIP(net.ParseIP(host)) {
		return fmt.Errorf("dial %s: %w", host, ErrNonPublicAddress)
	}
	return nil
}
