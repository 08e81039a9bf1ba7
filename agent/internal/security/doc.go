// Package security inspects the TLS certificate of the upstream session-log
// endpoint. The resulting CertStatus travels with every snapshot so the
// server can warn before the upstream certificate expires.
package security
