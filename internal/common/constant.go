package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultKeepVersions is the number of content versions kept per passfile
// in the local store when nothing else is configured.
const DefaultKeepVersions = 5
