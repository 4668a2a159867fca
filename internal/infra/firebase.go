// README: Firebase Admin SDK initialisation and token verifiers.
package infra

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Custom claims carrying the booking identity of a Firebase user.
const (
	ClaimUserID = "user_id"
	ClaimRole   = "role"
)

var ErrMissingSubject = errors.New("token has no subject")

// FirebaseToken holds the verified token data used by downstream middleware.
type FirebaseToken struct {
	UID    string
	Claims map[string]interface{}
}

// UserID is the positive booking user id claim, if present.
func (t *FirebaseToken) UserID() (int64, bool) {
	id, ok := ClaimInt64(t.Claims, ClaimUserID)
	return id, ok && id > 0
}

// Role is the upper-cased role claim, or "".
func (t *FirebaseToken) Role() string {
	role, _ := t.Claims[ClaimRole].(string)
	return strings.ToUpper(strings.TrimSpace(role))
}

// TokenVerifier verifies a raw Firebase ID token string and returns token data.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error)
}

// firebaseVerifier is the production implementation backed by the Firebase Admin SDK.
type firebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier creates a TokenVerifier using the Firebase Admin SDK.
// If credentialsFile is non-empty it is used as the service-account JSON path;
// otherwise application-default credentials / GOOGLE_APPLICATION_CREDENTIALS are used.
// The booking identity is read from the ClaimUserID and ClaimRole custom claims.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (TokenVerifier, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Auth: %w", err)
	}
	return &firebaseVerifier{client: client}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if token.UID == "" {
		return nil, ErrMissingSubject
	}
	return &FirebaseToken{UID: token.UID, Claims: token.Claims}, nil
}

var ErrInvalidDevToken = errors.New("invalid development token")

// DevVerifier accepts "dev-<userId>" or "dev-<userId>-<role>" tokens. It is
// only wired outside production when no Firebase project is configured.
type DevVerifier struct{}

func (DevVerifier) VerifyIDToken(_ context.Context, idToken string) (*FirebaseToken, error) {
	parts := strings.Split(idToken, "-")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "dev" {
		return nil, ErrInvalidDevToken
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrInvalidDevToken
	}
	claims := map[string]interface{}{ClaimUserID: float64(id)}
	if len(parts) == 3 {
		claims[ClaimRole] = strings.ToUpper(parts[2])
	}
	return &FirebaseToken{UID: "dev-" + parts[1], Claims: claims}, nil
}

// ClaimInt64 reads an integer claim. JSON numbers arrive as float64; string
// values are parsed.
func ClaimInt64(claims map[string]interface{}, key string) (int64, bool) {
	switch v := claims[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}
