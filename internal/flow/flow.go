// Package flow drives a user from WiiLink login to a linked Just Eat account. It owns
// the session state and enforces the order of the steps; the network work is done by
// the services it is constructed with.
package flow

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/Gkemhcs/justeat-linker/internal/accounts"
	"github.com/Gkemhcs/justeat-linker/internal/auth"
	apperrors "github.com/Gkemhcs/justeat-linker/internal/errors"
	"github.com/Gkemhcs/justeat-linker/internal/justeat"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/sync/semaphore"
)

// Authenticator runs the WiiLink device-code login.
type Authenticator interface {
	StartDeviceFlow(ctx context.Context) (*oauth2.DeviceAuthResponse, error)
	StartPolling(ctx context.Context, challenge *oauth2.DeviceAuthResponse) *auth.PollHandle
	Describe(ctx context.Context, token *oauth2.Token) string
}

// HardwareResolver lists the Wii consoles linked to a WiiLink account.
type HardwareResolver interface {
	FetchLinkedHardware(ctx context.Context, accessToken string) (accounts.HardwareSet, error)
}

// AccountLinker logs in to Just Eat and links the session on the backend.
type AccountLinker interface {
	NewAttempt(country string) (*justeat.Attempt, error)
	Login(ctx context.Context, attempt *justeat.Attempt, username, password string) (*justeat.LoginOutcome, error)
	SubmitSecondFactor(ctx context.Context, attempt *justeat.Attempt, code string) (*oauth2.Token, error)
	Link(ctx context.Context, req justeat.LinkRequest) error
}

// Flow is the linking state machine. Operations are valid only in their step and at
// most one may be outstanding at a time.
type Flow struct {
	auth     Authenticator
	hardware HardwareResolver
	linker   AccountLinker
	logger   *logrus.Logger

	gate *semaphore.Weighted

	mu             sync.Mutex
	step           Step
	state          SessionState
	poll           *auth.PollHandle
	linked         accounts.HardwareSet
	pendingWii     string
	pendingCountry string
}

// New creates a Flow positioned at StepAccountLogin.
func New(a Authenticator, h HardwareResolver, l AccountLinker, logger *logrus.Logger) *Flow {
	return &Flow{
		auth:     a,
		hardware: h,
		linker:   l,
		logger:   logger,
		gate:     semaphore.NewWeighted(1),
		step:     StepAccountLogin,
	}
}

// enter claims the flow for one operation in the given step. The returned func
// releases it.
func (f *Flow) enter(want Step) (func(), error) {
	if !f.gate.TryAcquire(1) {
		return nil, apperrors.ErrStepInFlight
	}
	f.mu.Lock()
	current := f.step
	f.mu.Unlock()
	if current != want {
		f.gate.Release(1)
		f.logger.Warnf("Operation for step %s refused in step %s", want, current)
		return nil, apperrors.ErrWrongStep
	}
	return func() { f.gate.Release(1) }, nil
}

func (f *Flow) moveTo(s Step) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger.Debugf("Flow step %s -> %s", f.step, s)
	f.step = s
}

// Step returns the current step.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Session returns a copy of the carried state.
func (f *Flow) Session() SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.snapshot()
}

// Begin requests a verification challenge and starts polling for the token in the
// background. Calling it again abandons the previous challenge.
func (f *Flow) Begin(ctx context.Context) (*oauth2.DeviceAuthResponse, error) {
	release, err := f.enter(StepAccountLogin)
	if err != nil {
		return nil, err
	}
	defer release()

	challenge, err := f.auth.StartDeviceFlow(ctx)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.poll != nil {
		f.poll.Cancel()
	}
	f.poll = f.auth.StartPolling(ctx, challenge)
	f.mu.Unlock()
	return challenge, nil
}

// AwaitLogin waits for the background poll. On success the access token is stored and
// the display name of the account, possibly empty, is returned. If ctx ends first the
// poll keeps running and AwaitLogin may be called again.
func (f *Flow) AwaitLogin(ctx context.Context) (string, error) {
	release, err := f.enter(StepAccountLogin)
	if err != nil {
		return "", err
	}
	defer release()

	f.mu.Lock()
	poll := f.poll
	f.mu.Unlock()
	if poll == nil {
		return "", apperrors.ErrPollingNotStarted
	}

	token, err := poll.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return "", err
		}
		f.mu.Lock()
		f.poll = nil
		f.mu.Unlock()
		return "", err
	}

	name := f.auth.Describe(ctx, token)
	f.mu.Lock()
	f.state.AccessToken = token.AccessToken
	f.poll = nil
	f.mu.Unlock()
	f.moveTo(StepLoadHardware)
	return name, nil
}

// LoadHardware fetches the consoles linked to the account. An empty set ends the flow
// at StepNoHardware with ErrNoHardware.
func (f *Flow) LoadHardware(ctx context.Context) (accounts.HardwareSet, error) {
	release, err := f.enter(StepLoadHardware)
	if err != nil {
		return nil, err
	}
	defer release()

	set, err := f.hardware.FetchLinkedHardware(ctx, f.Session().AccessToken)
	if err != nil {
		return nil, err
	}
	if set.Empty() {
		f.moveTo(StepNoHardware)
		return set, apperrors.ErrNoHardware
	}

	f.mu.Lock()
	f.linked = slices.Clone(set)
	f.pendingWii = set.Default()
	f.mu.Unlock()
	f.moveTo(StepSelectHardware)
	return slices.Clone(set), nil
}

// Hardware returns the loaded consoles and the one currently chosen.
func (f *Flow) Hardware() (accounts.HardwareSet, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.linked), f.pendingWii
}

// ChooseHardware selects a console from the loaded set.
func (f *Flow) ChooseHardware(wiiNumber string) error {
	release, err := f.enter(StepSelectHardware)
	if err != nil {
		return err
	}
	defer release()

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.linked.Contains(wiiNumber) {
		return apperrors.ErrUnknownHardware
	}
	f.pendingWii = wiiNumber
	return nil
}

// ConfirmHardware fixes the chosen console for the rest of the flow.
func (f *Flow) ConfirmHardware() (string, error) {
	release, err := f.enter(StepSelectHardware)
	if err != nil {
		return "", err
	}
	defer release()

	f.mu.Lock()
	f.state.WiiNumber = f.pendingWii
	f.pendingCountry = justeat.DefaultCountry().Code
	wii := f.state.WiiNumber
	f.mu.Unlock()
	f.logger.Infof("Wii %s selected", wii)
	f.moveTo(StepSelectCountry)
	return wii, nil
}

// Countries returns the supported markets and the one currently chosen.
func (f *Flow) Countries() ([]justeat.Country, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chosen := f.pendingCountry
	if chosen == "" {
		chosen = justeat.DefaultCountry().Code
	}
	return slices.Clone(justeat.Countries), chosen
}

// ChooseCountry selects a market by code.
func (f *Flow) ChooseCountry(code string) error {
	release, err := f.enter(StepSelectCountry)
	if err != nil {
		return err
	}
	defer release()

	if _, ok := justeat.LookupCountry(code); !ok {
		return apperrors.ErrUnknownCountry
	}
	f.mu.Lock()
	f.pendingCountry = code
	f.mu.Unlock()
	return nil
}

// ConfirmCountry fixes the chosen market.
func (f *Flow) ConfirmCountry() (string, error) {
	release, err := f.enter(StepSelectCountry)
	if err != nil {
		return "", err
	}
	defer release()

	f.mu.Lock()
	f.state.Country = f.pendingCountry
	country := f.state.Country
	f.mu.Unlock()
	f.moveTo(StepCredentials)
	return country, nil
}

// SubmitCredentials logs in to Just Eat with a fresh device identity. It returns the
// step the flow moved to. Rejected credentials return ErrInvalidCredentials and keep
// the flow at StepCredentials.
func (f *Flow) SubmitCredentials(ctx context.Context, username, password string) (Step, error) {
	release, err := f.enter(StepCredentials)
	if err != nil {
		return StepCredentials, err
	}
	defer release()

	state := f.Session()
	attempt, err := f.linker.NewAttempt(state.Country)
	if err != nil {
		return StepCredentials, err
	}
	outcome, err := f.linker.Login(ctx, attempt, username, password)
	if err != nil {
		return StepCredentials, err
	}

	switch outcome.Result {
	case justeat.LoginInvalidCredentials:
		return StepCredentials, apperrors.ErrInvalidCredentials
	case justeat.LoginSecondFactorRequired:
		attempt.SetChallenge(outcome.MFAToken, outcome.Payload)
		f.mu.Lock()
		f.state.Attempt = attempt
		f.mu.Unlock()
		f.moveTo(StepSecondFactor)
		return StepSecondFactor, nil
	default:
		f.mu.Lock()
		f.state.Attempt = attempt
		f.state.DeliveryTokens = outcome.Tokens
		f.mu.Unlock()
		return f.link(ctx)
	}
}

// SubmitSecondFactor completes the outstanding challenge and links the account. A
// rejected code keeps the flow at StepSecondFactor.
func (f *Flow) SubmitSecondFactor(ctx context.Context, code string) (Step, error) {
	release, err := f.enter(StepSecondFactor)
	if err != nil {
		return StepSecondFactor, err
	}
	defer release()

	f.mu.Lock()
	attempt := f.state.Attempt
	f.mu.Unlock()

	tokens, err := f.linker.SubmitSecondFactor(ctx, attempt, code)
	if err != nil {
		return StepSecondFactor, err
	}

	f.mu.Lock()
	attempt.ClearChallenge()
	f.state.DeliveryTokens = tokens
	f.mu.Unlock()
	return f.link(ctx)
}

// RetryLink repeats only the backend link call after it failed.
func (f *Flow) RetryLink(ctx context.Context) (Step, error) {
	release, err := f.enter(StepLink)
	if err != nil {
		return StepLink, err
	}
	defer release()

	if f.Session().DeliveryTokens == nil {
		return StepLink, apperrors.ErrNoPendingLink
	}
	return f.link(ctx)
}

func (f *Flow) link(ctx context.Context) (Step, error) {
	f.mu.Lock()
	req := justeat.LinkRequest{
		WiiNumber:     f.state.WiiNumber,
		PlatformToken: f.state.AccessToken,
		Tokens:        f.state.DeliveryTokens,
		DeviceModel:   f.state.Attempt.DeviceModel,
		Attestation:   f.state.Attempt.Attestation,
	}
	f.mu.Unlock()

	if err := f.linker.Link(ctx, req); err != nil {
		f.logger.Errorf("Backend link failed: %v", err)
		f.moveTo(StepLink)
		return StepLink, err
	}

	f.mu.Lock()
	f.state.DeliveryTokens = nil
	f.mu.Unlock()
	f.moveTo(StepDone)
	return StepDone, nil
}
