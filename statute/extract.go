package statute

import (
	"regexp"
	"strings"

	"legalrag-backend/models"
)

// referencePattern matches a section number and statute token in either order:
//
//	"Section 302 IPC", "Sec. 302 of the BNS", "103 of the BNS"   (number first)
//	"IPC 302", "BNS Section 103"                                   (statute first)
//
// Groups 1/2 capture number/statute for the first form, groups 3/4 statute/number for the second.
// \d is ASCII-only in RE2: Devanagari or full-width section numbers are not matched,
// matching the ASCII section keys of the snapshot.
var referencePattern = regexp.MustCompile(
	`(?i)(?:(?:section|sec\.?)\s+)?(\d+)\s*(?:of\s+the\s+)?\s*(IPC|BNS)` +
		`|(IPC|BNS)\s*(?:section|sec\.?)?\s*(\d+)`,
)

// Extract returns every statute reference in query, in order of appearance.
// Repeated references are kept. A query without references yields an empty slice.
func Extract(query string) []models.StatuteReference {
	matches := referencePattern.FindAllStringSubmatch(query, -1)
	refs := make([]models.StatuteReference, 0, len(matches))

	for _, m := range matches {
		section, token := m[1], m[2]
		if section == "" {
			token, section = m[3], m[4]
		}

		code, err := models.ParseStatuteCode(token)
		if err != nil {
			continue
		}
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}

		refs = append(refs, models.StatuteReference{Code: code, Section: section})
	}

	return refs
}
