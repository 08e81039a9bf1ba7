package security

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"time"

	"github.com/linkpulse/linkpulse/agent/internal/config"
	"github.com/linkpulse/linkpulse/pkg/types"
)

const (
	dialTimeout  = 10 * time.Second
	expiringDays = 30
)

// Check dials the TLS endpoint of the upstream source and returns a
// CertStatus describing the leaf certificate.
//
// Returns nil for file sources and non-HTTPS endpoints.
func Check(ctx context.Context, src config.Source) *types.CertStatus {
	return check(ctx, src, time.Now())
}

func check(ctx context.Context, src config.Source, now time.Time) *types.CertStatus {
	if src.Type != "http" {
		return nil
	}
	u, err := url.Parse(src.Endpoint)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	cs := &types.CertStatus{
		Endpoint: src.Endpoint,
		AuthType: src.Auth.Mode,
	}
	if cs.AuthType == "" {
		cs.AuthType = "none"
	}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
		},
	}

	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Status = types.CertUnreachable
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		cs.Status = types.CertUnreachable
		return cs
	}

	leaf := peerCerts[0]
	daysLeft := leaf.NotAfter.Sub(now).Hours() / 24

	cs.NotAfter = leaf.NotAfter.UTC().Format(time.RFC3339)
	cs.Issuer = leaf.Issuer.CommonName
	cs.DaysLeft = int(math.Floor(daysLeft))
	cs.Status = statusFor(daysLeft)
	return cs
}

func statusFor(daysLeft float64) string {
	switch {
	case daysLeft <= 0:
		return types.CertExpired
	case daysLeft <= expiringDays:
		return types.CertExpiring
	default:
		return types.CertValid
	}
}
