package session

import (
	"context"
	"time"
)

// Identity is what a sign-in provider reports about the user.
type Identity struct {
	UID         string
	DisplayName string
	PhotoURL    string
}

// IdentityProvider signs a user in.
type IdentityProvider interface {
	SignIn(ctx context.Context) (Identity, error)
}

// Mock Google account returned by MockGoogle.
const (
	MockGoogleUID   = "google-user-123"
	MockGoogleName  = "Demo User"
	MockGooglePhoto = "https://lh3.googleusercontent.com/a/ACg8ocIq8d1-123456789=s96-c"
)

// MockGoogle stands in for Google sign-in. Delay simulates the network
// round trip; zero returns immediately.
type MockGoogle struct {
	Delay time.Duration
}

// SignIn implements IdentityProvider.
func (m MockGoogle) SignIn(ctx context.Context) (Identity, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return Identity{}, ctx.Err()
		}
	}
	return Identity{UID: MockGoogleUID, DisplayName: MockGoogleName, PhotoURL: MockGooglePhoto}, nil
}
