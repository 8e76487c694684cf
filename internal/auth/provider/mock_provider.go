package provider

import (
	"context"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"
)

// MockDeviceCodeProvider is a mock implementation of the DeviceCodeProvider interface
type MockDeviceCodeProvider struct {
	mock.Mock
}

// RequestChallenge mocks the RequestChallenge method
func (m *MockDeviceCodeProvider) RequestChallenge(ctx context.Context) (*oauth2.DeviceAuthResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.DeviceAuthResponse), args.Error(1)
}

// PollToken mocks the PollToken method
func (m *MockDeviceCodeProvider) PollToken(ctx context.Context, challenge *oauth2.DeviceAuthResponse) (*oauth2.Token, error) {
	args := m.Called(ctx, challenge)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

// MockUserInfoProvider is a mock implementation of the UserInfoProvider interface
type MockUserInfoProvider struct {
	mock.Mock
}

// UserInfo mocks the UserInfo method
func (m *MockUserInfoProvider) UserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserInfo), args.Error(1)
}
