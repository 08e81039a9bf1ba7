// Package auth provides authentication middleware for linkpulse-server.
//
// APIKeyInterceptor(mode, header, key) returns a gRPC UnaryServerInterceptor
// that validates the API key from the named gRPC metadata header.
// HTTPMiddleware applies the same check to HTTP handlers, accepting the key
// from the header or the api_key query parameter.
//
// When mode != "apikey" or key == "", all calls pass through (useful for local
// development with auth disabled). When the key is incorrect or absent,
// gRPC calls fail with codes.Unauthenticated and HTTP requests with 401.
package auth
