package flow

import (
	"context"

	"github.com/Gkemhcs/justeat-linker/internal/accounts"
	"github.com/Gkemhcs/justeat-linker/internal/auth"
	"github.com/Gkemhcs/justeat-linker/internal/justeat"
	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"
)

// MockAuthenticator is a mock implementation of the Authenticator interface
type MockAuthenticator struct {
	mock.Mock
}

// StartDeviceFlow mocks the StartDeviceFlow method
func (m *MockAuthenticator) StartDeviceFlow(ctx context.Context) (*oauth2.DeviceAuthResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.DeviceAuthResponse), args.Error(1)
}

// StartPolling mocks the StartPolling method. The expectation returns an auth.PollFunc
// which is run the same way the real service runs its poll.
func (m *MockAuthenticator) StartPolling(ctx context.Context, challenge *oauth2.DeviceAuthResponse) *auth.PollHandle {
	args := m.Called(ctx, challenge)
	return auth.RunPoll(ctx, args.Get(0).(auth.PollFunc))
}

// Describe mocks the Describe method
func (m *MockAuthenticator) Describe(ctx context.Context, token *oauth2.Token) string {
	args := m.Called(ctx, token)
	return args.String(0)
}

// MockHardwareResolver is a mock implementation of the HardwareResolver interface
type MockHardwareResolver struct {
	mock.Mock
}

// FetchLinkedHardware mocks the FetchLinkedHardware method
func (m *MockHardwareResolver) FetchLinkedHardware(ctx context.Context, accessToken string) (accounts.HardwareSet, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(accounts.HardwareSet), args.Error(1)
}

// MockAccountLinker is a mock implementation of the AccountLinker interface
type MockAccountLinker struct {
	mock.Mock
}

// NewAttempt mocks the NewAttempt method
func (m *MockAccountLinker) NewAttempt(country string) (*justeat.Attempt, error) {
	args := m.Called(country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*justeat.Attempt), args.Error(1)
}

// Login mocks the Login method
func (m *MockAccountLinker) Login(ctx context.Context, attempt *justeat.Attempt, username, password string) (*justeat.LoginOutcome, error) {
	args := m.Called(ctx, attempt, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*justeat.LoginOutcome), args.Error(1)
}

// SubmitSecondFactor mocks the SubmitSecondFactor method
func (m *MockAccountLinker) SubmitSecondFactor(ctx context.Context, attempt *justeat.Attempt, code string) (*oauth2.Token, error) {
	args := m.Called(ctx, attempt, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

// Link mocks the Link method
func (m *MockAccountLinker) Link(ctx context.Context, req justeat.LinkRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
