package auth

import (
	"context"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// FirebaseVerifier checks Firebase ID tokens.
type FirebaseVerifier struct {
	client *fbauth.Client
}

// NewFirebaseVerifier initialises the Firebase app. credentialsFile may be
// empty, in which case application default credentials are used.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "init firebase app")
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "init firebase auth")
	}
	return &FirebaseVerifier{client: client}, nil
}

func (f *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}

	email, _ := token.Claims["email"].(string)
	if email == "" {
		return nil, errors.Wrap(ErrInvalidToken, "token has no email claim")
	}
	return &Identity{UID: token.UID, Email: email}, nil
}
