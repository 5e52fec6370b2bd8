package rules

import (
	"regexp"

	"github.com/devos-os/d-scan/internal/core"
)

func authRules() []Rule {
	rule := func(id, name string, sev core.Severity, pattern, msg, fix string) Rule {
		return Rule{
			ID:       id,
			Name:     name,
			Category: core.CatAuth,
			Pattern:  regexp.MustCompile(pattern),
			Severity: sev,
			Message:  msg,
			Fix:      fix,
			Taxonomy: Taxonomy{OWASP: owaspAuth, CWE: "CWE-287"},
			MaxMatch: 80,
		}
	}
	unless := func(r Rule, line string) Rule {
		r.ExcludeLine = regexp.MustCompile(line)
		return r
	}

	return []Rule{
		// JWT
		rule("AUTH001", "JWT No Algorithm Verification", core.SevCritical,
			`(?i)algorithms?\s*:\s*\[\s*['"]none['"]`,
			`Allowing the "none" algorithm lets attackers skip JWT signature checks`,
			`Remove "none" and list the expected algorithms explicitly`),
		rule("AUTH002", "JWT Secret in Code", core.SevCritical,
			`(?i)jwt\.sign\s*\([^,]+,\s*['"][^'"]{8,}['"]`,
			"The JWT signing secret is hardcoded",
			"Read the secret from process.env.JWT_SECRET"),
		unless(rule("AUTH003", "JWT No Expiration", core.SevMedium,
			`(?i)jwt\.sign\s*\([^)]+\)`,
			"The JWT seems to have no expiry",
			`Add expiresIn, e.g. jwt.sign(payload, secret, { expiresIn: "1h" })`),
			`(?i)expiresIn`),
		rule("AUTH004", "JWT Verify Without Options", core.SevMedium,
			`(?i)jwt\.verify\s*\(\s*\w+\s*,\s*\w+\s*\)`,
			"JWT verification does not pin the algorithm",
			"Pass an explicit algorithms option"),

		// Сессии и cookie
		rule("AUTH005", "Session Secret in Code", core.SevHigh,
			`(?i)session\s*\(\s*\{[^}]*secret\s*:\s*['"][^'"]+['"]`,
			"The session secret is hardcoded",
			"Read the secret from the environment"),
		unless(rule("AUTH006", "Cookie Without HttpOnly", core.SevMedium,
			`(?i)cookie\s*\(\s*['"][^'"]+['"]\s*,\s*[^)]*`,
			"Cookies without httpOnly can be stolen through XSS",
			"Add httpOnly: true"),
			`(?i)httpOnly`),
		rule("AUTH007", "Cookie Without Secure", core.SevMedium,
			`(?i)cookie.*secure\s*:\s*false`,
			"secure: false lets the cookie travel over plain HTTP",
			"Set secure: true (HTTPS)"),
		rule("AUTH008", "Cookie SameSite None", core.SevMedium,
			`(?i)sameSite\s*:\s*['"]?none['"]?`,
			"SameSite=None exposes the cookie to CSRF",
			`Use SameSite "strict" or "lax"`),

		// CORS
		rule("AUTH009", "CORS Allow All Origins", core.SevHigh,
			`(?i)(?:Access-Control-Allow-Origin|origin)\s*[=:]\s*['"]?\*['"]?`,
			"CORS accepts every origin",
			"List the allowed origins explicitly"),
		rule("AUTH010", "CORS Credentials with Wildcard", core.SevCritical,
			`(?i)credentials\s*:\s*true.*origin\s*:\s*['"]?\*|origin\s*:\s*['"]?\*.*credentials\s*:\s*true`,
			`credentials: true cannot be combined with origin "*"`,
			"Pin the origin to a domain or validate it dynamically"),

		rule("AUTH011", "Weak Password Validation", core.SevMedium,
			`(?i)password\.length\s*[<>=]+\s*[1-6]\b`,
			"The minimum password length is too short",
			"Require at least 8 characters, 12+ recommended"),

		rule("AUTH012", "Authentication Bypass Risk", core.SevLow,
			`(?i)if\s*\(\s*(?:!user|user\s*==\s*null|!req\.user|!session)`,
			"Authentication check found; review it for bypasses",
			"Make sure every route enforces authentication"),

		rule("AUTH013", "Hardcoded Credentials", core.SevHigh,
			`(?i)(?:admin|root|administrator)\s*[=:]\s*['"][^'"]+['"]`,
			"Administrator credentials may be hardcoded",
			"Use the environment or a secret manager"),

		unless(rule("AUTH014", "OAuth State Missing", core.SevMedium,
			`(?i)oauth.*redirect`,
			"OAuth redirect without a state parameter is open to CSRF",
			"Generate and verify a state parameter"),
			`(?i)state`),

		rule("AUTH015", "2FA Bypass Risk", core.SevHigh,
			`(?i)(?:skip|bypass|disable).*(?:2fa|mfa|two.?factor)`,
			"Logic that bypasses 2FA was found",
			"Allow 2FA bypass only in tightly controlled cases"),
	}
}
