package justeat

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
)

// attestationDevice is the device descriptor embedded, base64 encoded, in the attestation.
type attestationDevice struct {
	DeviceType string `json:"DeviceType"`
	DeviceName string `json:"DeviceName"`
	DeviceId   string `json:"DeviceId"`
}

// BuildAttestation renders the acr value Just Eat expects:
// "tenant:<country> device:<base64 json> deviceId:<model>".
func BuildAttestation(country, deviceModel, deviceID string) (string, error) {
	raw, err := json.Marshal(attestationDevice{
		DeviceType: "Android",
		DeviceName: deviceModel,
		DeviceId:   deviceID,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("tenant:%s device:%s deviceId:%s",
		country, base64.StdEncoding.EncodeToString(raw), deviceModel), nil
}

// Attempt is one login attempt: the device identity it presents and, while a second
// factor is outstanding, the challenge and payload carried into the 2FA request.
// The attestation is fixed for the lifetime of the attempt and is sent unchanged to
// both Just Eat and the WiiLink link endpoint.
type Attempt struct {
	Country     string
	DeviceModel string
	DeviceID    string
	Attestation string

	MFAToken string
	Payload  url.Values
}

// AwaitingSecondFactor reports whether a 2FA challenge is outstanding.
func (a *Attempt) AwaitingSecondFactor() bool {
	return a != nil && a.MFAToken != ""
}

// SetChallenge records the second-factor challenge issued for this attempt.
func (a *Attempt) SetChallenge(mfaToken string, payload url.Values) {
	a.MFAToken = mfaToken
	a.Payload = clonePayload(payload)
}

// Clone returns a copy of the attempt that shares no state with it.
func (a *Attempt) Clone() *Attempt {
	if a == nil {
		return nil
	}
	out := *a
	out.Payload = clonePayload(a.Payload)
	return &out
}

// ClearChallenge drops the challenge once it has been exchanged.
func (a *Attempt) ClearChallenge() {
	a.MFAToken = ""
	a.Payload = nil
}
