package model

// AuthorizationStatus mirrors the location permission states a device reports.
type AuthorizationStatus string

const (
	AuthorizationNotDetermined AuthorizationStatus = "not_determined"
	AuthorizationRestricted    AuthorizationStatus = "restricted"
	AuthorizationDenied        AuthorizationStatus = "denied"
	AuthorizationAlways        AuthorizationStatus = "authorized_always"
	AuthorizationWhenInUse     AuthorizationStatus = "authorized_when_in_use"
)

// Authorized reports whether location services may be used.
func (s AuthorizationStatus) Authorized() bool {
	return s == AuthorizationAlways || s == AuthorizationWhenInUse
}

func ParseAuthorizationStatus(s string) (AuthorizationStatus, bool) {
	switch st := AuthorizationStatus(s); st {
	case AuthorizationNotDetermined, AuthorizationRestricted, AuthorizationDenied,
		AuthorizationAlways, AuthorizationWhenInUse:
		return st, true
	}
	return "", false
}
