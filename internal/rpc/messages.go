package rpc

import "time"

// PassFileInfo is the wire form of a passfile index record. Server-side
// records carry no tombstones or sync metadata.
type PassFileInfo struct {
	ID               int64     `cbor:"id"`
	Type             int       `cbor:"type"`
	Name             string    `cbor:"name"`
	Color            string    `cbor:"color,omitempty"`
	CreatedOn        time.Time `cbor:"created_on"`
	InfoChangedOn    time.Time `cbor:"info_changed_on"`
	VersionChangedOn time.Time `cbor:"version_changed_on"`
	Version          int       `cbor:"version"`
}

type RegisterRequest struct {
	Username string `cbor:"username"`
	Salt     []byte `cbor:"salt"`
	Verifier []byte `cbor:"verifier"`
}

type RegisterResponse struct{}

type GetSaltRequest struct {
	Username string `cbor:"username"`
}

type GetSaltResponse struct {
	Salt []byte `cbor:"salt"`
}

type LoginRequest struct {
	Username string `cbor:"username"`
	Verifier []byte `cbor:"verifier"`
}

type LoginResponse struct {
	AccessToken  string `cbor:"access_token"`
	RefreshToken string `cbor:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `cbor:"refresh_token"`
}

type RefreshTokenResponse struct {
	AccessToken  string `cbor:"access_token"`
	RefreshToken string `cbor:"refresh_token"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `cbor:"status"`
}

type GetListRequest struct {
	Type int `cbor:"type"`
}

type GetListResponse struct {
	Items []PassFileInfo `cbor:"items"`
}

type GetInfoRequest struct {
	ID int64 `cbor:"id"`
}

type GetInfoResponse struct {
	Info PassFileInfo `cbor:"info"`
}

type GetContentRequest struct {
	ID      int64 `cbor:"id"`
	Version int   `cbor:"version"`
}

type GetContentResponse struct {
	Data []byte `cbor:"data"`
}

// AddRequest creates a passfile without content. The server assigns the
// id and starts at version 0.
type AddRequest struct {
	Info PassFileInfo `cbor:"info"`
}

type AddResponse struct {
	Info PassFileInfo `cbor:"info"`
}

type SaveInfoRequest struct {
	Info PassFileInfo `cbor:"info"`
}

type SaveInfoResponse struct {
	Info PassFileInfo `cbor:"info"`
}

// SaveContentRequest stores a new content version. The server bumps the
// version and returns the updated record.
type SaveContentRequest struct {
	ID   int64  `cbor:"id"`
	Data []byte `cbor:"data"`
}

type SaveContentResponse struct {
	Info PassFileInfo `cbor:"info"`
}

// DeleteRequest removes a passfile. Verifier proves knowledge of the
// account password.
type DeleteRequest struct {
	ID       int64  `cbor:"id"`
	Verifier []byte `cbor:"verifier"`
}

type DeleteResponse struct{}
