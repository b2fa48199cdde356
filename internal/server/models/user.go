package models

import "time"

type User struct {
	ID        int64
	UserName  string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}
