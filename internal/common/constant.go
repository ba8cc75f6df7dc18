package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName is the HTTP header (and gRPC metadata key) carrying
// "Bearer <token>".
const AuthorizationHeaderName = "authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "
