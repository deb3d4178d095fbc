// Package user is the user feature: the currently logged-in user, or nil.
package user

import "github.com/roach88/statebox/internal/state"

// FeatureName is the slice name the user feature registers under by default.
const FeatureName = "user"

// Action tags.
const (
	TagSetUser   = "[User] Set User"
	TagClearUser = "[User] Clear User"
)

// User is an authenticated user. Values are treated as immutable once placed
// in the store; a new login is a new *User.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Action is the closed set of user actions.
type Action interface {
	state.Action
	userAction()
}

// SetUser logs a user in.
type SetUser struct {
	User *User
}

// ClearUser logs the current user out.
type ClearUser struct{}

func (SetUser) Type() string   { return TagSetUser }
func (ClearUser) Type() string { return TagClearUser }

func (SetUser) userAction()   {}
func (ClearUser) userAction() {}

// NewSetUser returns a SetUser action.
func NewSetUser(u *User) Action { return SetUser{User: u} }

// NewClearUser returns a ClearUser action.
func NewClearUser() Action { return ClearUser{} }

// Valid reports whether a SetUser carries a usable user.
func (a SetUser) Valid() bool {
	return a.User != nil && a.User.ID != ""
}

// Reduce computes the next user. A malformed SetUser is ignored.
func Reduce(cur *User, a Action) *User {
	switch a := a.(type) {
	case SetUser:
		if !a.Valid() {
			return cur
		}
		return a.User
	case ClearUser:
		return nil
	default:
		return cur
	}
}
