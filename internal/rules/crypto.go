package rules

import (
	"regexp"

	"github.com/devos-os/d-scan/internal/core"
)

func cryptoRules() []Rule {
	rule := func(id, name string, sev core.Severity, pattern, msg, fix string) Rule {
		return Rule{
			ID:       id,
			Name:     name,
			Category: core.CatCrypto,
			Pattern:  regexp.MustCompile(pattern),
			Severity: sev,
			Message:  msg,
			Fix:      fix,
			Taxonomy: Taxonomy{OWASP: owaspCrypto, CWE: "CWE-327"},
		}
	}

	tls := rule("CRY011", "Insecure TLS Version", core.SevHigh,
		`(?i)\b(?:SSLv3|TLS_v1_[01]|TLSv1(?:[._][01])?)\b`,
		"TLS 1.0/1.1 and SSL are no longer secure",
		"Use TLS 1.2 or newer")
	tls.ExcludeLine = regexp.MustCompile(`(?i)TLSv1[._][23]|TLS_v1_[23]`)

	return []Rule{
		// Слабые хэши
		rule("CRY001", "Weak Hash (MD5)", core.SevHigh,
			`(?i)createHash\s*\(\s*['"]md5['"]\s*\)`,
			"MD5 is collision-prone and must not be used for passwords",
			"Use bcrypt/argon2 for passwords and SHA-256+ elsewhere"),
		rule("CRY002", "Weak Hash (SHA1)", core.SevMedium,
			`(?i)createHash\s*\(\s*['"]sha1?['"]\s*\)`,
			"SHA-1 is no longer secure",
			"Use SHA-256 or stronger"),

		rule("CRY003", "Insecure Random (Math.random)", core.SevMedium,
			`Math\.random\s*\(\s*\)`,
			"Math.random() is predictable and unfit for security use",
			"Use crypto.randomBytes() or crypto.randomUUID()"),
		rule("CRY004", "Insecure Random (Python)", core.SevMedium,
			`\brandom\.(random|randint|choice|shuffle)\s*\(`,
			"The random module is unfit for security use",
			"Use the secrets module (secrets.token_hex(), secrets.choice())"),

		rule("CRY005", "Hardcoded Encryption Key", core.SevCritical,
			`(?i)(?:encryption[_\-]?key|secret[_\-]?key|aes[_\-]?key)\s*[=:]\s*['"][A-Za-z0-9+/=]{16,}['"]`,
			"An encryption key is hardcoded",
			"Load keys from the environment or a KMS (AWS KMS, HashiCorp Vault)"),
		rule("CRY006", "Hardcoded IV", core.SevHigh,
			`(?i)\biv\s*[=:]\s*['"][A-Fa-f0-9]{32}['"]`,
			"The IV is hardcoded; it must be random per message",
			"Generate a fresh IV with crypto.randomBytes() every time"),
		rule("CRY007", "Hardcoded Salt", core.SevHigh,
			`(?i)\bsalt\s*[=:]\s*['"][A-Za-z0-9+/=]{8,}['"]`,
			"The salt is hardcoded; it must differ per user",
			"Generate a random salt per user and store it with the hash"),

		rule("CRY008", "ECB Mode Encryption", core.SevHigh,
			`(?i)(?:aes|des)[_\-]?(?:128|192|256)?[_\-]?ecb`,
			"ECB mode leaks plaintext patterns",
			"Use GCM (preferred), CBC or CTR"),
		rule("CRY009", "DES Encryption", core.SevHigh,
			`(?i)(?:createCipher|createDecipher)\s*\(\s*['"]des(?:-ede3)?['"]`,
			"DES is no longer secure",
			"Use AES-256-GCM"),

		rule("CRY010", "Disabled SSL Verification", core.SevCritical,
			`(?i)rejectUnauthorized\s*:\s*false|verify\s*[=:]\s*false|CERT_NONE`,
			"Certificate verification is disabled (MITM risk)",
			"Enable certificate verification; never disable it in production"),
		tls,

		rule("CRY012", "Plain Password Storage", core.SevHigh,
			`(?i)password\s*[=:]\s*(?:req\.body|request\.|params\.|input)`,
			"The password seems to be stored without hashing",
			"Hash with bcrypt.hash() before storing"),
		rule("CRY013", "Timing Attack Vulnerable Comparison", core.SevMedium,
			`(?i)password\s*===?\s*(?:stored|db|user)\.`,
			"Plain string comparison of secrets is open to timing attacks",
			"Use crypto.timingSafeEqual() or bcrypt.compare()"),
	}
}
