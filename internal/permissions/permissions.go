package permissions

import "errors"

// ErrNotGranted is returned when the user has not approved a permission.
var ErrNotGranted = errors.New("permission not granted")

// Status mirrors AVAuthorizationStatus
type Status int

const (
	NotDetermined Status = iota
	Restricted
	Denied
	Authorized
)

func (s Status) String() string {
	switch s {
	case NotDetermined:
		return "not determined"
	case Restricted:
		return "restricted"
	case Denied:
		return "denied"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}
