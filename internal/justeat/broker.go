package justeat

import (
	"context"
	"net/url"

	apperrors "github.com/Gkemhcs/justeat-linker/internal/errors"
)

const (
	loginTargetPath        = "/userdatalogin.json"
	secondFactorTargetPath = "/2fadata.json"
	linkPath               = "/link"
)

// fetchTarget asks the WiiLink backend where and how to send a Just Eat request for
// this device and country. The answer is request scoped and must be fetched again for
// every submission.
func (s *LinkerService) fetchTarget(ctx context.Context, path string, attempt *Attempt) (*LoginTarget, error) {
	query := url.Values{}
	query.Set("device_id", attempt.DeviceModel)
	query.Set("country", attempt.Country)

	resp, err := s.wiilink.Get(ctx, s.baseURL+path, nil, query)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		s.logger.Errorf("Login target %s failed with status %d", path, resp.Status)
		return nil, apperrors.NewJustEatDataError(resp.Status)
	}

	var target LoginTarget
	if err := resp.JSON(&target); err != nil {
		return nil, apperrors.NewMalformedResponseError(s.wiilink.Service(), resp.Status, err)
	}
	if target.URL == "" {
		return nil, apperrors.NewJustEatDataError(resp.Status)
	}
	return &target, nil
}
