package cloudsync

import (
	"context"
	"sync"

	firebase "firebase.google.com/go/v4"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// Authenticator is the service-side auth provider: the dashboard user
// is fixed by configuration and verified against Firebase Auth at
// startup. SignIn and SignOut drive the same auth-state transitions the
// web dashboard gets from its sign-in popup.
type Authenticator struct {
	mu        sync.Mutex
	userID    string
	current   string
	listeners []func(uid string)
}

// NewAuthenticator verifies that the configured user exists in the
// Firebase project and returns a signed-out provider.
func NewAuthenticator(ctx context.Context, projectID, credentialsFile, userID string) (*Authenticator, error) {
	if userID == "" {
		return nil, errors.New("no dashboard user configured")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "firebase app")
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "firebase auth")
	}

	if _, err := client.GetUser(ctx, userID); err != nil {
		return nil, errors.Wrapf(err, "unknown dashboard user %s", userID)
	}

	return &Authenticator{userID: userID}, nil
}

func (a *Authenticator) CurrentUser() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *Authenticator) SignIn() {
	a.setCurrent(a.userID)
}

func (a *Authenticator) SignOut() {
	a.setCurrent("")
}

func (a *Authenticator) OnAuthChange(fn func(uid string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *Authenticator) setCurrent(uid string) {
	a.mu.Lock()
	a.current = uid
	listeners := append(([]func(string))(nil), a.listeners...)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(uid)
	}
}
