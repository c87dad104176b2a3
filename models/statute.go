package models

import (
	"fmt"
	"strings"
)

// StatuteCode identifies a statute whose sections can be served from the statute cache
type StatuteCode string

const (
	StatuteIPC StatuteCode = "IPC" // Indian Penal Code, 1860
	StatuteBNS StatuteCode = "BNS" // Bharatiya Nyaya Sanhita, 2023
)

// KnownStatuteCodes lists every statute code the cache accepts
var KnownStatuteCodes = []StatuteCode{StatuteIPC, StatuteBNS}

// ParseStatuteCode converts a raw token into a StatuteCode, case-insensitively
func ParseStatuteCode(raw string) (StatuteCode, error) {
	code := StatuteCode(strings.ToUpper(strings.TrimSpace(raw)))
	switch code {
	case StatuteIPC, StatuteBNS:
		return code, nil
	default:
		return "", fmt.Errorf("unknown statute code %q", raw)
	}
}

// StatuteReference is a statute section mentioned in a query
type StatuteReference struct {
	Code    StatuteCode `json:"code"`
	Section string      `json:"section"`
}

// DocumentID returns the canonical identifier used for exact-match results, e.g. "IPC Section 302"
func (r StatuteReference) DocumentID() string {
	return fmt.Sprintf("%s Section %s", r.Code, r.Section)
}
