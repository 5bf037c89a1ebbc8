package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// NewClient builds the HTTP client shared by image downloads and provider
// calls. An empty proxy means a direct connection.
func NewClient(proxy string, timeout time.Duration) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy url '%s': %w", proxy, err)
		}
		tr.Proxy = http.ProxyURL(u)
	}

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// Insecure returns a copy of hc that skips certificate verification.
func Insecure(hc *http.Client) *http.Client {
	var tr *http.Transport
	if base, ok := hc.Transport.(*http.Transport); ok {
		tr = base.Clone()
	} else {
		tr = http.DefaultTransport.(*http.Transport).Clone()
	}
	if tr.TLSClientConfig == nil {
		tr.TLSClientConfig = &tls.Config{}
	}
	tr.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec

	return &http.Client{
		Transport:     tr,
		Timeout:       hc.Timeout,
		CheckRedirect: hc.CheckRedirect,
		Jar:           hc.Jar,
	}
}

// IsTLSError reports whether err comes from certificate verification.
func IsTLSError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr)
}

// IsTimeout reports whether err is a client or network timeout.
func IsTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
