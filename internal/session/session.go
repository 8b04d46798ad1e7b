// Package session holds the authenticated identity of the local user.
//
// A Session is an immutable value passed explicitly to the API client and the match
// view; nothing in this module keeps auth state in package globals.
package session

import (
	"strings"

	"github.com/park285/tictactoe-client/internal/match"
)

// User is the account the server returned on login.
type User struct {
	ID        match.FlexID `json:"id"`
	Username  string       `json:"username"`
	Email     string       `json:"email,omitempty"`
	CreatedAt string       `json:"created_at,omitempty"`
}

type Session struct {
	Token string
	User  User
}

// Anonymous is the zero session: no token, observer of every match.
var Anonymous = Session{}

func New(token string, user User) Session {
	return Session{Token: strings.TrimSpace(token), User: user}
}

func (s Session) Authenticated() bool { return s.Token != "" }

// Identity is the user id used to decide seats.
func (s Session) Identity() match.UserID { return match.UserID(s.User.ID) }

// Headers returns request headers for the authenticated user.
func (s Session) Headers() map[string]string {
	h := map[string]string{}
	if s.Token != "" {
		h["Authorization"] = "Bearer " + s.Token
	}
	return h
}
