package rules

import (
	"regexp"

	"github.com/devos-os/d-scan/internal/core"
)

// Паттерны собраны по мотивам gitleaks / trufflehog.
func secretRules() []Rule {
	tax := Taxonomy{OWASP: owaspAuth, CWE: "CWE-798"}
	rule := func(id, name, pattern string, sev core.Severity, fix string) Rule {
		return Rule{
			ID:       id,
			Name:     name,
			Category: core.CatSecrets,
			Pattern:  regexp.MustCompile(pattern),
			Severity: sev,
			Message:  name + " is hardcoded in source",
			Fix:      fix,
			Taxonomy: tax,
		}
	}

	return []Rule{
		// AWS
		rule("SEC001", "AWS Access Key", `AKIA[0-9A-Z]{16}`, core.SevCritical,
			"Read AWS_ACCESS_KEY_ID from the environment or use an IAM role"),
		rule("SEC002", "AWS Secret Key",
			`(?i)(?:aws_secret_access_key|aws_secret_key|secret_access_key)\s*[=:]\s*['"]?([A-Za-z0-9/+=]{40})['"]?`,
			core.SevCritical, "Read AWS_SECRET_ACCESS_KEY from the environment or use an IAM role"),

		// Google
		rule("SEC003", "Google API Key", `AIza[0-9A-Za-z_\-]{35}`, core.SevHigh,
			"Keep the key in the environment and restrict it in the Cloud console"),
		rule("SEC004", "Google OAuth Client Secret", `GOCSPX-[A-Za-z0-9_\-]{28}`, core.SevCritical,
			"Keep the secret in the environment and regenerate the OAuth client"),

		// GitHub
		rule("SEC005", "GitHub Token", `ghp_[A-Za-z0-9]{36}`, core.SevCritical,
			"Use GITHUB_TOKEN from the environment and revoke this token now"),
		rule("SEC006", "GitHub OAuth Token", `gho_[A-Za-z0-9]{36}`, core.SevCritical,
			"Keep the token in the environment and revoke this token now"),

		// Slack
		rule("SEC007", "Slack Token", `xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9\-]*`, core.SevHigh,
			"Use SLACK_TOKEN from the environment"),
		rule("SEC008", "Slack Webhook",
			`https://hooks\.slack\.com/services/T[A-Z0-9]{8}/B[A-Z0-9]{8,12}/[a-zA-Z0-9]{24}`,
			core.SevHigh, "Keep the webhook URL in the environment"),

		rule("SEC009", "Database Connection String",
			`(?i)(mongodb|mysql|postgres|postgresql|redis)://[^:\s]+:[^@\s]+@[^/\s]+`,
			core.SevCritical, "Use DATABASE_URL from the environment and rotate the password"),

		// Общие паттерны
		rule("SEC010", "Generic API Key",
			`(?i)(?:api[_\-]?key|apikey)\s*[=:]\s*['"]([A-Za-z0-9_\-]{20,})['"]?`,
			core.SevHigh, "Move the API key to the environment"),
		rule("SEC011", "Generic Secret",
			`(?i)(?:secret|password|passwd|pwd)\s*[=:]\s*['"]([^'"]{8,})['"]?`,
			core.SevHigh, "Use environment variables or a secret manager"),
		rule("SEC012", "Private Key", `-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`, core.SevCritical,
			"Never commit private keys: move the key to a file and add it to .gitignore"),

		rule("SEC013", "JWT Token", `eyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]*`, core.SevMedium,
			"Issue JWTs at runtime or read them from the environment"),

		rule("SEC014", "Kakao API Key",
			`(?i)(?:kakao[_\-]?(?:api[_\-]?)?key)\s*[=:]\s*['"]([a-f0-9]{32})['"]?`,
			core.SevHigh, "Use KAKAO_API_KEY from the environment"),
		rule("SEC015", "Naver Client Secret",
			`(?i)(?:naver[_\-]?(?:client[_\-]?)?secret)\s*[=:]\s*['"]([A-Za-z0-9]{10,})['"]?`,
			core.SevHigh, "Use NAVER_CLIENT_SECRET from the environment"),
	}
}
