package provider

import (
	"context"

	"golang.org/x/oauth2"
)

// DeviceCodeProvider defines the device authorization grant as the linker uses it.
type DeviceCodeProvider interface {
	// RequestChallenge obtains the verification URI and user code for the user to enter.
	RequestChallenge(ctx context.Context) (*oauth2.DeviceAuthResponse, error)
	// PollToken polls the token endpoint on the provider's schedule until a token is issued,
	// a fatal response arrives or ctx is done.
	PollToken(ctx context.Context, challenge *oauth2.DeviceAuthResponse) (*oauth2.Token, error)
}

// UserInfoProvider resolves the profile behind an access token.
type UserInfoProvider interface {
	UserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error)
}
