package user

import (
	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/state"
)

// NewSlice defines a user slice starting from initial (usually nil).
// An empty name means FeatureName.
func NewSlice(name string, initial *User) *state.Slice[*User] {
	if name == "" {
		name = FeatureName
	}
	return state.NewSlice(name, initial, Reduce, state.WithEncoder(Encode))
}

// SelectUser selects the current user.
func SelectUser(sl *state.Slice[*User]) state.Selector[*User] {
	return state.FeatureSelector(sl)
}

// SelectIsLoggedIn reports whether a user is set.
func SelectIsLoggedIn(sl *state.Slice[*User]) state.Selector[bool] {
	return state.CreateSelector(SelectUser(sl), func(u *User) bool { return u != nil })
}

// Encode is the journal encoding of the user slice. Canonical JSON has no
// null, so a logged-out slice encodes as the empty object.
func Encode(u *User) ir.Value {
	if u == nil {
		return ir.Object{}
	}
	return ToValue(u)
}

// ToValue encodes a user as an object.
func ToValue(u *User) ir.Object {
	return ir.Obj(
		ir.P("id", ir.String(u.ID)),
		ir.P("name", ir.String(u.Name)),
		ir.P("email", ir.String(u.Email)),
	)
}

// FromValue decodes a user object. The empty object decodes to nil.
// Missing or non-string fields read as empty.
func FromValue(obj ir.Object) *User {
	if len(obj) == 0 {
		return nil
	}
	id, _ := obj.GetString("id")
	name, _ := obj.GetString("name")
	email, _ := obj.GetString("email")
	return &User{ID: id, Name: name, Email: email}
}

// Decode maps a tag and payload to a user action. A SetUser whose payload
// has no usable "user" object still decodes; the reducer ignores it.
func Decode(tag string, payload ir.Object) (Action, bool) {
	switch tag {
	case TagSetUser:
		obj, ok := payload.GetObject("user")
		if !ok {
			return SetUser{}, true
		}
		return SetUser{User: FromValue(obj)}, true
	case TagClearUser:
		return ClearUser{}, true
	default:
		return nil, false
	}
}

// Payload encodes a user action for the journal.
func Payload(a Action) ir.Object {
	switch a := a.(type) {
	case SetUser:
		if a.User == nil {
			return ir.Object{}
		}
		return ir.Obj(ir.P("user", ToValue(a.User)))
	default:
		return ir.Object{}
	}
}
