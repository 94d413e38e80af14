package jail

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jail-ai/jailctl/pkg/jailerrors"
)

// allowedNameChars is the restricted character class a caller-supplied
// jail name must satisfy (§4.C "Name resolution").
var allowedNameChars = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidateName checks a caller-supplied jail name against the restricted
// character class. The empty string does not match the class and is
// rejected.
func ValidateName(name string) error {
	if !allowedNameChars.MatchString(name) {
		return jailerrors.New(jailerrors.KindPlanning, name, errInvalidName)
	}
	return nil
}

var errInvalidName = errNameError("jail name must match " + allowedNameChars.String())

type errNameError string

func (e errNameError) Error() string { return string(e) }

// DeriveName computes the stable derived jail name from a workspace
// basename, short identifier, and optional agent (§3 "Jail", §4.C "Name
// resolution"): jail__<sanitized-workspace-basename>__<short-id>[__<agent>].
func DeriveName(workspace, shortID, agent string) string {
	base := sanitizeBasename(filepath.Base(workspace))
	parts := []string{"jail", base, shortID}
	if agent != "" {
		parts = append(parts, agent)
	}
	return strings.Join(parts, "__")
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

func sanitizeBasename(s string) string {
	s = nonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "workspace"
	}
	return s
}

// VolumeName mirrors the jail name; the persistent home volume is named
// identically to its jail (§3 "Jail", §4.C "Per-jail persistent volume").
func VolumeName(jailName string) string {
	return jailName
}
