package flow

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/Gkemhcs/justeat-linker/internal/accounts"
	"github.com/Gkemhcs/justeat-linker/internal/auth"
	apperrors "github.com/Gkemhcs/justeat-linker/internal/errors"
	"github.com/Gkemhcs/justeat-linker/internal/justeat"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/oauth2"
)

// FlowTestSuite represents the test suite for Flow
type FlowTestSuite struct {
	suite.Suite
	auth     *MockAuthenticator
	hardware *MockHardwareResolver
	linker   *MockAccountLinker
	logger   *logrus.Logger
	ctx      context.Context
	flow     *Flow
}

var challenge = &oauth2.DeviceAuthResponse{
	VerificationURI: "https://sso.example/device",
	UserCode:        "ABCD-EFGH",
	DeviceCode:      "device-code",
	Interval:        1,
}

func tokenPoll(token string) auth.PollFunc {
	return func(context.Context) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: token}, nil
	}
}

func newAttempt(id string) *justeat.Attempt {
	return &justeat.Attempt{
		Country:     "UK",
		DeviceModel: "Pixel 8",
		DeviceID:    id,
		Attestation: "tenant:UK device:" + id + " deviceId:Pixel 8",
	}
}

var deliveryTokens = &oauth2.Token{AccessToken: "je-access", RefreshToken: "je-refresh", ExpiresIn: 3600}

// SetupSuite sets up the test suite
func (s *FlowTestSuite) SetupSuite() {
	s.logger = logrus.New()
	s.logger.SetOutput(io.Discard)
	s.ctx = context.Background()
}

// SetupTest sets up each individual test
func (s *FlowTestSuite) SetupTest() {
	s.auth = &MockAuthenticator{}
	s.hardware = &MockHardwareResolver{}
	s.linker = &MockAccountLinker{}
	s.flow = New(s.auth, s.hardware, s.linker, s.logger)
}

func (s *FlowTestSuite) login() {
	s.auth.On("StartDeviceFlow", mock.Anything).Return(challenge, nil).Once()
	s.auth.On("StartPolling", mock.Anything, challenge).Return(tokenPoll("platform-token")).Once()
	s.auth.On("Describe", mock.Anything, mock.Anything).Return("Wii User").Once()

	got, err := s.flow.Begin(s.ctx)
	s.Require().NoError(err)
	s.Equal(challenge, got)

	name, err := s.flow.AwaitLogin(s.ctx)
	s.Require().NoError(err)
	s.Equal("Wii User", name)
	s.Equal(StepLoadHardware, s.flow.Step())
}

// toCredentials drives the flow to StepCredentials with Wii 5678 and country IT.
func (s *FlowTestSuite) toCredentials() {
	s.login()
	s.hardware.On("FetchLinkedHardware", mock.Anything, "platform-token").
		Return(accounts.HardwareSet{"1234", "5678"}, nil).Once()

	set, err := s.flow.LoadHardware(s.ctx)
	s.Require().NoError(err)
	s.Equal(accounts.HardwareSet{"1234", "5678"}, set)

	all, chosen := s.flow.Hardware()
	s.Len(all, 2)
	s.Equal("1234", chosen)

	s.Require().NoError(s.flow.ChooseHardware("5678"))
	wii, err := s.flow.ConfirmHardware()
	s.Require().NoError(err)
	s.Equal("5678", wii)

	countries, code := s.flow.Countries()
	s.Equal(justeat.Countries, countries)
	s.Equal("UK", code)

	s.Require().NoError(s.flow.ChooseCountry("IT"))
	country, err := s.flow.ConfirmCountry()
	s.Require().NoError(err)
	s.Equal("IT", country)
	s.Equal(StepCredentials, s.flow.Step())
}

func (s *FlowTestSuite) TestLinkWithoutSecondFactor() {
	s.toCredentials()
	attempt := newAttempt("d1")
	s.linker.On("NewAttempt", "IT").Return(attempt, nil).Once()
	s.linker.On("Login", mock.Anything, attempt, "user", "pass").
		Return(&justeat.LoginOutcome{Result: justeat.LoginSucceeded, Status: 200, Tokens: deliveryTokens}, nil).Once()
	s.linker.On("Link", mock.Anything, justeat.LinkRequest{
		WiiNumber:     "5678",
		PlatformToken: "platform-token",
		Tokens:        deliveryTokens,
		DeviceModel:   attempt.DeviceModel,
		Attestation:   attempt.Attestation,
	}).Return(nil).Once()

	step, err := s.flow.SubmitCredentials(s.ctx, "user", "pass")
	s.Require().NoError(err)
	s.Equal(StepDone, step)
	s.True(step.Terminal())

	state := s.flow.Session()
	s.Equal("platform-token", state.AccessToken)
	s.Equal("5678", state.WiiNumber)
	s.Equal("IT", state.Country)
	s.Nil(state.DeliveryTokens)
	s.linker.AssertExpectations(s.T())
	s.linker.AssertNotCalled(s.T(), "SubmitSecondFactor", mock.Anything, mock.Anything, mock.Anything)
}

func (s *FlowTestSuite) TestNoHardwareIsTerminal() {
	s.login()
	s.hardware.On("FetchLinkedHardware", mock.Anything, "platform-token").Return(accounts.HardwareSet{}, nil).Once()

	_, err := s.flow.LoadHardware(s.ctx)
	s.ErrorIs(err, apperrors.ErrNoHardware)
	s.Equal(StepNoHardware, s.flow.Step())
	s.True(s.flow.Step().Terminal())

	_, err = s.flow.ConfirmHardware()
	s.ErrorIs(err, apperrors.ErrWrongStep)
}

func (s *FlowTestSuite) TestHardwareFetchErrorKeepsStep() {
	s.login()
	s.hardware.On("FetchLinkedHardware", mock.Anything, "platform-token").
		Return(nil, apperrors.NewAttributeRetrievalError(401)).Once()

	_, err := s.flow.LoadHardware(s.ctx)
	s.ErrorIs(err, apperrors.ErrAttributeRetrieval)
	s.Equal(StepLoadHardware, s.flow.Step())
}

func (s *FlowTestSuite) TestWrongStep() {
	_, err := s.flow.ConfirmHardware()
	s.ErrorIs(err, apperrors.ErrWrongStep)

	_, err = s.flow.SubmitCredentials(s.ctx, "user", "pass")
	s.ErrorIs(err, apperrors.ErrWrongStep)

	_, err = s.flow.RetryLink(s.ctx)
	s.ErrorIs(err, apperrors.ErrWrongStep)

	s.ErrorIs(s.flow.ChooseCountry("UK"), apperrors.ErrWrongStep)
	s.Equal(StepAccountLogin, s.flow.Step())
}

func (s *FlowTestSuite) TestAwaitLoginBeforeBegin() {
	_, err := s.flow.AwaitLogin(s.ctx)
	s.ErrorIs(err, apperrors.ErrPollingNotStarted)
}

func (s *FlowTestSuite) TestAwaitLoginFailureAllowsRestart() {
	s.auth.On("StartDeviceFlow", mock.Anything).Return(challenge, nil)
	s.auth.On("StartPolling", mock.Anything, challenge).Return(auth.PollFunc(func(context.Context) (*oauth2.Token, error) {
		return nil, apperrors.NewTokenHTTPError(500)
	})).Once()

	_, err := s.flow.Begin(s.ctx)
	s.Require().NoError(err)
	_, err = s.flow.AwaitLogin(s.ctx)
	s.ErrorIs(err, apperrors.ErrTokenHTTP)
	s.Equal(StepAccountLogin, s.flow.Step())
	s.Empty(s.flow.Session().AccessToken)

	_, err = s.flow.AwaitLogin(s.ctx)
	s.ErrorIs(err, apperrors.ErrPollingNotStarted)

	s.auth.On("StartPolling", mock.Anything, challenge).Return(tokenPoll("second")).Once()
	s.auth.On("Describe", mock.Anything, mock.Anything).Return("")
	_, err = s.flow.Begin(s.ctx)
	s.Require().NoError(err)
	_, err = s.flow.AwaitLogin(s.ctx)
	s.Require().NoError(err)
	s.Equal("second", s.flow.Session().AccessToken)
}

func (s *FlowTestSuite) TestAwaitLoginGivesUpWithoutLosingPoll() {
	release := make(chan struct{})
	s.auth.On("StartDeviceFlow", mock.Anything).Return(challenge, nil)
	s.auth.On("StartPolling", mock.Anything, challenge).Return(auth.PollFunc(func(ctx context.Context) (*oauth2.Token, error) {
		select {
		case <-release:
			return &oauth2.Token{AccessToken: "late"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}))
	s.auth.On("Describe", mock.Anything, mock.Anything).Return("")

	_, err := s.flow.Begin(s.ctx)
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.flow.AwaitLogin(ctx)
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Equal(StepAccountLogin, s.flow.Step())

	close(release)
	_, err = s.flow.AwaitLogin(s.ctx)
	s.Require().NoError(err)
	s.Equal("late", s.flow.Session().AccessToken)
}

func (s *FlowTestSuite) TestInvalidCredentialsKeepsStepAndToken() {
	s.toCredentials()
	first, second := newAttempt("d1"), newAttempt("d2")
	s.linker.On("NewAttempt", "IT").Return(first, nil).Once()
	s.linker.On("Login", mock.Anything, first, "user", "wrong").
		Return(&justeat.LoginOutcome{Result: justeat.LoginInvalidCredentials, Status: 400}, nil).Once()

	step, err := s.flow.SubmitCredentials(s.ctx, "user", "wrong")
	s.ErrorIs(err, apperrors.ErrInvalidCredentials)
	s.Equal(StepCredentials, step)
	s.Equal(StepCredentials, s.flow.Step())
	s.Equal("platform-token", s.flow.Session().AccessToken)
	s.Nil(s.flow.Session().Attempt)

	s.linker.On("NewAttempt", "IT").Return(second, nil).Once()
	s.linker.On("Login", mock.Anything, second, "user", "right").
		Return(&justeat.LoginOutcome{Result: justeat.LoginSucceeded, Tokens: deliveryTokens}, nil).Once()
	s.linker.On("Link", mock.Anything, mock.MatchedBy(func(req justeat.LinkRequest) bool {
		return req.Attestation == second.Attestation
	})).Return(nil).Once()

	step, err = s.flow.SubmitCredentials(s.ctx, "user", "right")
	s.Require().NoError(err)
	s.Equal(StepDone, step)
	s.linker.AssertExpectations(s.T())
}

func (s *FlowTestSuite) TestSecondFactor() {
	s.toCredentials()
	attempt := newAttempt("d1")
	payload := url.Values{"username": {"user"}, "password": {"pass"}}
	s.linker.On("NewAttempt", "IT").Return(attempt, nil).Once()
	s.linker.On("Login", mock.Anything, attempt, "user", "pass").
		Return(&justeat.LoginOutcome{Result: justeat.LoginSecondFactorRequired, Status: 202, MFAToken: "mfa-1", Payload: payload}, nil).Once()

	step, err := s.flow.SubmitCredentials(s.ctx, "user", "pass")
	s.Require().NoError(err)
	s.Equal(StepSecondFactor, step)

	state := s.flow.Session()
	s.Require().NotNil(state.Attempt)
	s.Equal("mfa-1", state.Attempt.MFAToken)
	s.Equal(payload, state.Attempt.Payload)

	s.linker.On("SubmitSecondFactor", mock.Anything, attempt, "000000").
		Return(nil, apperrors.NewJustEat2FAError(401)).Once()
	step, err = s.flow.SubmitSecondFactor(s.ctx, "000000")
	s.ErrorIs(err, apperrors.ErrJustEat2FA)
	s.Equal(StepSecondFactor, step)
	s.True(attempt.AwaitingSecondFactor())

	s.linker.On("SubmitSecondFactor", mock.Anything, attempt, "123456").Return(deliveryTokens, nil).Once()
	s.linker.On("Link", mock.Anything, mock.MatchedBy(func(req justeat.LinkRequest) bool {
		return req.WiiNumber == "5678" && req.Tokens == deliveryTokens && req.Attestation == attempt.Attestation
	})).Return(nil).Once()

	step, err = s.flow.SubmitSecondFactor(s.ctx, "123456")
	s.Require().NoError(err)
	s.Equal(StepDone, step)
	s.False(attempt.AwaitingSecondFactor())
	s.Nil(s.flow.Session().DeliveryTokens)
	s.linker.AssertExpectations(s.T())
}

func (s *FlowTestSuite) TestLinkFailureRetriesOnlyLink() {
	s.toCredentials()
	attempt := newAttempt("d1")
	s.linker.On("NewAttempt", "IT").Return(attempt, nil).Once()
	s.linker.On("Login", mock.Anything, attempt, "user", "pass").
		Return(&justeat.LoginOutcome{Result: justeat.LoginSucceeded, Tokens: deliveryTokens}, nil).Once()
	s.linker.On("Link", mock.Anything, mock.Anything).Return(apperrors.NewJustEatLinkError(502)).Once()

	step, err := s.flow.SubmitCredentials(s.ctx, "user", "pass")
	s.ErrorIs(err, apperrors.ErrJustEatLink)
	s.Equal(StepLink, step)
	s.Equal(deliveryTokens.AccessToken, s.flow.Session().DeliveryTokens.AccessToken)

	_, err = s.flow.SubmitCredentials(s.ctx, "user", "pass")
	s.ErrorIs(err, apperrors.ErrWrongStep)

	s.linker.On("Link", mock.Anything, mock.Anything).Return(nil).Once()
	step, err = s.flow.RetryLink(s.ctx)
	s.Require().NoError(err)
	s.Equal(StepDone, step)

	s.linker.AssertNumberOfCalls(s.T(), "Login", 1)
	s.linker.AssertNumberOfCalls(s.T(), "Link", 2)
}

func (s *FlowTestSuite) TestUnknownSelections() {
	s.login()
	s.hardware.On("FetchLinkedHardware", mock.Anything, "platform-token").Return(accounts.HardwareSet{"1234"}, nil).Once()
	_, err := s.flow.LoadHardware(s.ctx)
	s.Require().NoError(err)

	s.ErrorIs(s.flow.ChooseHardware("9999"), apperrors.ErrUnknownHardware)
	_, chosen := s.flow.Hardware()
	s.Equal("1234", chosen)

	_, err = s.flow.ConfirmHardware()
	s.Require().NoError(err)
	s.ErrorIs(s.flow.ChooseCountry("FR"), apperrors.ErrUnknownCountry)

	country, err := s.flow.ConfirmCountry()
	s.Require().NoError(err)
	s.Equal("UK", country)
}

func (s *FlowTestSuite) TestConcurrentSubmissionRefused() {
	s.toCredentials()
	attempt := newAttempt("d1")
	entered := make(chan struct{})
	unblock := make(chan struct{})

	s.linker.On("NewAttempt", "IT").Return(attempt, nil).Once()
	s.linker.On("Login", mock.Anything, attempt, "user", "pass").
		Run(func(mock.Arguments) {
			close(entered)
			<-unblock
		}).
		Return(&justeat.LoginOutcome{Result: justeat.LoginInvalidCredentials}, nil).Once()

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = s.flow.SubmitCredentials(s.ctx, "user", "pass")
	}()

	<-entered
	_, err := s.flow.SubmitCredentials(s.ctx, "user", "pass")
	s.ErrorIs(err, apperrors.ErrStepInFlight)

	close(unblock)
	wg.Wait()
	s.True(errors.Is(firstErr, apperrors.ErrInvalidCredentials))
	s.linker.AssertNumberOfCalls(s.T(), "Login", 1)
}

func (s *FlowTestSuite) TestSessionIsACopy() {
	s.toCredentials()
	attempt := newAttempt("d1")
	s.linker.On("NewAttempt", "IT").Return(attempt, nil).Once()
	s.linker.On("Login", mock.Anything, attempt, "user", "pass").
		Return(&justeat.LoginOutcome{Result: justeat.LoginSecondFactorRequired, MFAToken: "mfa", Payload: url.Values{"a": {"b"}}}, nil).Once()
	_, err := s.flow.SubmitCredentials(s.ctx, "user", "pass")
	s.Require().NoError(err)

	state := s.flow.Session()
	state.Attempt.Payload["a"][0] = "changed"
	state.WiiNumber = "0000"

	again := s.flow.Session()
	s.Equal("b", again.Attempt.Payload.Get("a"))
	s.Equal("5678", again.WiiNumber)
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "account_login", StepAccountLogin.String())
	assert.Equal(t, "second_factor", StepSecondFactor.String())
	assert.Equal(t, "done", StepDone.String())
	assert.Equal(t, "unknown", Step(42).String())
	assert.False(t, StepLink.Terminal())
}

// TestFlowTestSuite runs the test suite
func TestFlowTestSuite(t *testing.T) {
	suite.Run(t, new(FlowTestSuite))
}
