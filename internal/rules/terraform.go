package rules

import (
	"regexp"

	"github.com/devos-os/d-scan/internal/core"
)

// Простое сопоставление по тексту, без полноценного разбора HCL.
// Блоки ресурсов ищутся до первой закрывающей скобки.
func terraformRules() []Rule {
	rule := func(id string, sev core.Severity, pattern, msg, fix string) Rule {
		return Rule{
			ID:        id,
			Name:      "Terraform: " + id,
			Category:  core.CatTerraform,
			Pattern:   regexp.MustCompile(`(?s)` + pattern),
			Severity:  sev,
			Message:   msg,
			Fix:       fix,
			Taxonomy:  Taxonomy{OWASP: owaspMisconfig, CWE: "CWE-732"},
			MaxMatch:  80,
			MatchLine: true,
		}
	}
	without := func(r Rule, inBlock string) Rule {
		r.ExcludeMatch = regexp.MustCompile(inBlock)
		return r
	}

	return []Rule{
		// AWS
		rule("TF001", core.SevHigh,
			`resource\s+"aws_security_group"[^}]*ingress\s*\{[^}]*cidr_blocks\s*=\s*\[\s*"0\.0\.0\.0/0"\s*\]`,
			"Security group is open to the whole internet (0.0.0.0/0)",
			"Restrict ingress to the required CIDR ranges"),
		rule("TF002", core.SevCritical,
			`resource\s+"aws_s3_bucket"[^}]*acl\s*=\s*"public-read"`,
			"S3 bucket ACL is public-read",
			"Set acl to private and use a bucket policy when sharing is needed"),
		rule("TF003", core.SevCritical,
			`resource\s+"aws_db_instance"[^}]*publicly_accessible\s*=\s*true`,
			"RDS instance is publicly accessible",
			"Set publicly_accessible = false"),
		rule("TF004", core.SevMedium,
			`resource\s+"aws_instance"[^}]*associate_public_ip_address\s*=\s*true`,
			"EC2 instance gets a public IP automatically",
			"Place it in a private subnet behind a NAT gateway"),
		without(rule("TF005", core.SevHigh,
			`resource\s+"aws_s3_bucket"[^}]*`,
			"S3 bucket encryption is not configured",
			"Add a server_side_encryption_configuration block"),
			`server_side_encryption_configuration`),
		without(rule("TF006", core.SevHigh,
			`resource\s+"aws_db_instance"[^}]*`,
			"RDS storage encryption is disabled",
			"Set storage_encrypted = true"),
			`storage_encrypted\s*=\s*true`),

		// Секреты
		rule("TF007", core.SevCritical,
			`(?i)(?:password|secret|token|api_key)\s*=\s*"[^"]{8,}"`,
			"Hardcoded secret found",
			"Use AWS Secrets Manager (data.aws_secretsmanager_secret_version) or variables"),
		rule("TF008", core.SevCritical,
			`access_key\s*=\s*"AKIA[A-Z0-9]{16}"`,
			"AWS access key is hardcoded",
			"Use an IAM role or an AWS CLI profile"),

		// Логирование
		without(rule("TF009", core.SevMedium,
			`resource\s+"aws_s3_bucket"[^}]*`,
			"S3 bucket access logging is disabled",
			"Add a logging block"),
			`logging\s*\{`),
		rule("TF010", core.SevHigh,
			`resource\s+"aws_cloudtrail"[^}]*enable_logging\s*=\s*false`,
			"CloudTrail logging is disabled",
			"Set enable_logging = true"),

		// GCP
		rule("TF011", core.SevHigh,
			`resource\s+"google_compute_firewall"[^}]*source_ranges\s*=\s*\[\s*"0\.0\.0\.0/0"\s*\]`,
			"GCP firewall is open to the whole internet",
			"Restrict source_ranges to the required CIDR ranges"),
		rule("TF012", core.SevMedium,
			`resource\s+"google_storage_bucket"[^}]*uniform_bucket_level_access\s*=\s*false`,
			"GCS bucket uniform access is disabled",
			"Set uniform_bucket_level_access = true"),

		// Azure
		rule("TF013", core.SevHigh,
			`resource\s+"azurerm_network_security_rule"[^}]*source_address_prefix\s*=\s*"\*"`,
			"Azure NSG rule accepts any source",
			"Restrict source_address_prefix to specific ranges"),

		rule("TF014", core.SevMedium,
			`(?i)enable_http\s*=\s*true|protocol\s*=\s*"HTTP"`,
			"Unencrypted HTTP is used",
			"Use HTTPS"),
		rule("TF015", core.SevHigh,
			`(?i)min_tls_version\s*=\s*"1\.[01]"|ssl_policy\s*=\s*"[^"]*TLSv1[^_2]"`,
			"TLS 1.0/1.1 is no longer secure",
			"Require TLS 1.2 or newer"),
	}
}

func terraformAbsenceRules() []AbsenceRule {
	return []AbsenceRule{{
		Rule: Rule{
			ID:       "TF016",
			Name:     "Terraform: Best Practice",
			Category: core.CatTerraform,
			Severity: core.SevLow,
			Message:  "Provider versions are not pinned",
			Fix:      "Pin versions in terraform { required_providers { ... } }",
			Taxonomy: Taxonomy{OWASP: owaspMisconfig, CWE: "CWE-732"},
		},
		Present: regexp.MustCompile(`(?s)required_providers\s*\{[^}]+\}`),
	}}
}
