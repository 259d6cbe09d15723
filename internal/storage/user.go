package storage

// Mode is how the user signed in.
type Mode string

const (
	ModeGuest  Mode = "GUEST"
	ModeGoogle Mode = "GOOGLE"
)

// Valid reports whether m is a known auth mode.
func (m Mode) Valid() bool {
	return m == ModeGuest || m == ModeGoogle
}

// UserContext identifies whose library an operation touches.
type UserContext struct {
	Mode        Mode   `json:"mode"`
	UID         string `json:"uid,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// UsesCloud reports whether the user's data lives in the cloud backend.
// A Google user without a uid falls back to the device.
func (u UserContext) UsesCloud() bool {
	return u.Mode == ModeGoogle && u.UID != ""
}
