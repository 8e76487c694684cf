package accounts

// HardwareSet is the ordered list of Wii numbers linked to a WiiLink account.
// An empty set is a valid answer meaning there is nothing to link.
type HardwareSet []string

// Empty reports whether no Wii is linked to the account.
func (h HardwareSet) Empty() bool {
	return len(h) == 0
}

// Default returns the Wii number preselected for the user, or "" for an empty set.
func (h HardwareSet) Default() string {
	if h.Empty() {
		return ""
	}
	return h[0]
}

// Contains reports whether wiiNumber belongs to the set.
func (h HardwareSet) Contains(wiiNumber string) bool {
	for _, n := range h {
		if n == wiiNumber {
			return true
		}
	}
	return false
}

// linkedUserResponse is the body of GET /link/user.
type linkedUserResponse struct {
	Attributes struct {
		Wiis []string `json:"wiis"`
	} `json:"attributes"`
}
