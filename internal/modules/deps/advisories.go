package deps

import (
	"fmt"

	"github.com/devos-os/d-scan/internal/core"
)

// advisory describes a package with a known problem. An empty FixedIn means
// every version is reported.
type advisory struct {
	Severity core.Severity
	Message  string
	Fix      string
	FixedIn  string
}

func (a advisory) finding(ecosystem, name, version string) core.Finding {
	match := name
	if version != "" {
		match = fmt.Sprintf("%s@%s", name, version)
	}
	return core.Finding{
		Category: core.CatDependencies,
		Rule:     "Vulnerable Package: " + name,
		Severity: a.Severity,
		Message:  a.Message,
		Fix:      a.Fix,
		Match:    match,
		OWASP:    owaspOutdated,
		CWE:      cweOutdated,
		Metadata: map[string]any{
			"ecosystem": ecosystem,
			"package":   name,
			"version":   version,
		},
	}
}

var npmAdvisories = map[string]advisory{
	"lodash": {core.SevHigh, "Old versions are vulnerable to prototype pollution",
		"Upgrade to 4.17.21 or later", "4.17.21"},
	"axios": {core.SevMedium, "Old versions are vulnerable to SSRF",
		"Upgrade to 1.6.0 or later", "1.6.0"},
	"express": {core.SevMedium, "Old versions carry several security issues",
		"Upgrade to 4.18.0 or later", "4.18.0"},
	"jsonwebtoken": {core.SevHigh, "Old versions allow algorithm confusion",
		"Upgrade to 9.0.0 or later", "9.0.0"},
	"minimist": {core.SevHigh, "Vulnerable to prototype pollution",
		"Upgrade to 1.2.6 or later", "1.2.6"},
	"node-fetch": {core.SevMedium, "Old versions allow URL bypass",
		"Upgrade to 2.6.7, or 3.x", "2.6.7"},
	"qs": {core.SevHigh, "Vulnerable to prototype pollution",
		"Upgrade to 6.10.3 or later", "6.10.3"},
	"serialize-javascript": {core.SevHigh, "Old versions allow remote code execution",
		"Upgrade to 3.1.0 or later", "3.1.0"},
	"ua-parser-js": {core.SevCritical, "Releases with injected malware were published",
		"Upgrade to 0.7.33, 0.8.1 or 1.0.33 and later", ""},
	"event-stream": {core.SevCritical, "Release 3.3.6 shipped injected malware",
		"Avoid the package or pin a known-good version", ""},
}

var pypiAdvisories = map[string]advisory{
	"pyyaml": {core.SevCritical, "yaml.load() allows arbitrary code execution",
		"Use 5.4 or later and yaml.safe_load()", "5.4"},
	"django": {core.SevHigh, "Old versions carry several security issues",
		"Upgrade to the current LTS release", ""},
	"flask": {core.SevMedium, "Old versions may carry security issues",
		"Upgrade to the latest release", ""},
	"requests": {core.SevMedium, "Old versions leak Proxy-Authorization headers",
		"Upgrade to 2.31.0 or later", "2.31.0"},
	"urllib3": {core.SevMedium, "Old versions are vulnerable to CRLF injection",
		"Upgrade to 2.0.0 or later", "2.0.0"},
}

var goAdvisories = map[string]advisory{
	"github.com/dgrijalva/jwt-go": {core.SevHigh, "The package is deprecated and has known vulnerabilities",
		"Migrate to github.com/golang-jwt/jwt/v5", ""},
	"github.com/gorilla/websocket": {core.SevHigh, "Old versions allow a denial of service through frame length overflow",
		"Upgrade to v1.4.1 or later", "1.4.1"},
	"golang.org/x/crypto": {core.SevMedium, "Old versions of x/crypto/ssh are affected by the Terrapin attack",
		"Upgrade to v0.17.0 or later", "0.17.0"},
}
