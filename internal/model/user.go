// internal/model/user.go
package model

// User is the sending side of a broadcast.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Position string `json:"position"`
}
