package user

import "github.com/roach88/statebox/internal/state"

// AuthGuard admits callers only while a user is logged in.
type AuthGuard struct {
	isLoggedIn state.Selector[bool]
}

// NewAuthGuard returns a guard over the given user slice.
func NewAuthGuard(sl *state.Slice[*User]) *AuthGuard {
	return &AuthGuard{isLoggedIn: SelectIsLoggedIn(sl)}
}

// CanActivate reads the store synchronously.
func (g *AuthGuard) CanActivate(s *state.Store) bool {
	return g.isLoggedIn(state.StateOf(s))
}
