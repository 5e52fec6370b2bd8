package rules

import (
	"regexp"

	"github.com/devos-os/d-scan/internal/core"
)

// Правила на основе CIS Docker Benchmark.
func dockerfileRules() []Rule {
	rule := func(id string, sev core.Severity, pattern, msg, fix, cis string) Rule {
		r := Rule{
			ID:        id,
			Name:      "Dockerfile: " + id,
			Category:  core.CatDockerfile,
			Pattern:   regexp.MustCompile(pattern),
			Severity:  sev,
			Message:   msg,
			Fix:       fix,
			Taxonomy:  Taxonomy{OWASP: owaspMisconfig, CWE: "CWE-732"},
			MatchLine: true,
		}
		if cis != "" {
			r.Metadata = map[string]string{"cisDockerBenchmark": cis}
		}
		return r
	}
	unless := func(r Rule, line string) Rule {
		r.ExcludeLine = regexp.MustCompile(line)
		return r
	}

	return []Rule{
		rule("DF001", core.SevMedium, `(?m)^FROM\s+[^:\n]+$`,
			"Base image has no tag; the implicit latest is unpredictable",
			"Pin an explicit version, e.g. FROM node:18.17.0-alpine", "4.1"),
		rule("DF002", core.SevHigh, `(?m)^USER\s+root\b`,
			"The container runs as root (privilege escalation risk)",
			"Switch to a non-root user, e.g. USER node", "4.3"),
		rule("DF004", core.SevCritical, `EXPOSE\s+22\b`,
			"Exposing SSH port 22 is dangerous",
			"Use docker exec instead of SSH", "4.7"),
		unless(rule("DF005", core.SevLow, `apt-get\s+install`,
			"Recommended packages widen the attack surface",
			"Use apt-get install --no-install-recommends", ""),
			`--no-install-recommends`),
		rule("DF006", core.SevCritical, `curl.*\|\s*(?:bash|sh)`,
			"Piping curl into a shell is open to MITM",
			"Download the file and verify its checksum first", ""),
		rule("DF007", core.SevLow, `COPY\s+--chown=\d+:\d+`,
			"Hardcoded UID/GID",
			"Use names, e.g. --chown=node:node", "4.6"),
		rule("DF008", core.SevMedium, `ADD\s+https?://`,
			"ADD downloading remote files is risky",
			"Use RUN curl/wget and verify the checksum", ""),
		unless(rule("DF009", core.SevLow, `apk\s+add`,
			"The apk cache stays in the image",
			"Use apk add --no-cache", ""),
			`--no-cache`),
		unless(rule("DF010", core.SevMedium, `(?:apt-get|apk|yum)\s+(?:update|upgrade)`,
			"A separate update layer causes stale package caches",
			"Chain it: RUN apt-get update && apt-get install -y ...", ""),
			`&&`),
		rule("DF011", core.SevMedium, `HEALTHCHECK\s+NONE`,
			"HEALTHCHECK is disabled",
			"Add HEALTHCHECK CMD ...", ""),
		rule("DF013", core.SevCritical, `(?i)ENV\s+(?:PASSWORD|SECRET|TOKEN|API_KEY)\s*=\s*\S+`,
			"Secrets set with ENV stay in the image layers",
			"Inject secrets at runtime", ""),
		rule("DF014", core.SevHigh, `chmod\s+777`,
			"777 permissions are too permissive",
			"Grant the minimum needed (e.g. 755)", ""),
		unless(rule("DF015", core.SevMedium, `wget.*`,
			"wget may use an insecure protocol",
			"Use wget --secure-protocol=TLSv1_2", ""),
			`--secure-protocol`),
	}
}

// nonRootUser matches a USER line whose user is not exactly root
// ("rootless" and "r" count as non-root, "root" and "root:root" do not).
const nonRootUser = `(?m)^USER\s+(?:[^\sr]|r(?:\s|$|[^\so]|o(?:\s|$|[^\so]|o(?:\s|$|[^\st]|t\w))))`

func dockerfileAbsenceRules() []AbsenceRule {
	base := func(id string, sev core.Severity, cwe, msg, fix string) Rule {
		return Rule{
			ID:       id,
			Name:     "Dockerfile: " + id,
			Category: core.CatDockerfile,
			Severity: sev,
			Message:  msg,
			Fix:      fix,
			Taxonomy: Taxonomy{OWASP: owaspMisconfig, CWE: cwe},
		}
	}

	df003 := base("DF003", core.SevHigh, "CWE-250",
		"No USER instruction; the container runs as root by default",
		"Add USER <non-root-user> to the Dockerfile")
	df003.Metadata = map[string]string{"cisDockerBenchmark": "4.3"}

	return []AbsenceRule{
		{Rule: df003, Present: regexp.MustCompile(nonRootUser)},
		{
			Rule: base("DF012", core.SevLow, "CWE-732",
				"No HEALTHCHECK; container health cannot be monitored",
				"HEALTHCHECK --interval=30s CMD <health-check-command>"),
			Present: regexp.MustCompile(`(?m)^HEALTHCHECK`),
		},
	}
}
