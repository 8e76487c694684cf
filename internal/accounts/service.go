package accounts

import (
	"context"
	"strings"

	apperrors "github.com/Gkemhcs/justeat-linker/internal/errors"
	"github.com/Gkemhcs/justeat-linker/internal/httpclient"
	"github.com/sirupsen/logrus"
)

const linkedUserPath = "/link/user"

// AccountsService resolves the Wii consoles registered to a WiiLink account.
type AccountsService struct {
	client     *httpclient.Client
	baseURL    string
	authScheme string
	logger     *logrus.Logger
}

// NewAccountsService creates a new AccountsService. authScheme, when non-empty, is
// prefixed to the access token in the Authorization header.
func NewAccountsService(client *httpclient.Client, baseURL, authScheme string, logger *logrus.Logger) *AccountsService {
	return &AccountsService{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		authScheme: authScheme,
		logger:     logger,
	}
}

// FetchLinkedHardware returns the Wii numbers linked to the account behind accessToken.
func (s *AccountsService) FetchLinkedHardware(ctx context.Context, accessToken string) (HardwareSet, error) {
	if accessToken == "" {
		return nil, apperrors.ErrNoAccessToken
	}
	s.logger.Info("Fetching Wii numbers linked to the WiiLink account")

	resp, err := s.client.Get(ctx, s.baseURL+linkedUserPath, map[string]string{
		"Authorization": AuthorizationValue(s.authScheme, accessToken),
	}, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		s.logger.Errorf("Linked hardware fetch failed with status %d", resp.Status)
		return nil, apperrors.NewAttributeRetrievalError(resp.Status)
	}

	var body linkedUserResponse
	if err := resp.JSON(&body); err != nil {
		return nil, apperrors.NewMalformedResponseError(s.client.Service(), resp.Status, err)
	}

	set := HardwareSet(body.Attributes.Wiis)
	s.logger.Infof("Account has %d linked Wii(s)", len(set))
	return set, nil
}

// AuthorizationValue builds the Authorization header for a WiiLink access token.
func AuthorizationValue(scheme, token string) string {
	if scheme == "" {
		return token
	}
	return scheme + " " + token
}
