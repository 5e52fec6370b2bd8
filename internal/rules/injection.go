package rules

import (
	"regexp"
	"strings"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/source"
)

func injectionRules() []Rule {
	rule := func(id, name string, langs []source.Language, pattern, msg, fix string) Rule {
		r := Rule{
			ID:        id,
			Name:      name,
			Category:  core.CatInjection,
			Languages: langs,
			Pattern:   regexp.MustCompile(pattern),
			Severity:  core.SevHigh,
			Message:   msg,
			Fix:       fix,
			Taxonomy:  Taxonomy{OWASP: owaspInjection, CWE: "CWE-89"},
			MaxMatch:  100,
		}
		if strings.Contains(name, "Command") {
			r.Severity = core.SevCritical
			r.Taxonomy.CWE = "CWE-78"
		}
		return r
	}

	all := []source.Language{source.LangJavaScript, source.LangTypeScript, source.LangPython, source.LangJava, source.LangGo}
	jsPy := []source.Language{source.LangJavaScript, source.LangTypeScript, source.LangPython}

	return []Rule{
		rule("INJ001", "String Concatenation SQL", jsFamily,
			`(?i)(?:query|execute|sql)\s*\(\s*['"\x60](?:SELECT|INSERT|UPDATE|DELETE).*\+.*(?:req\.|params\.|body\.|query\.)`,
			"SQL query is built by string concatenation and is open to SQL injection",
			`Use a parameterized query, e.g. db.query("SELECT * FROM users WHERE id = ?", [userId])`),
		rule("INJ002", "Template Literal SQL", jsFamily,
			"(?i)(?:query|execute|sql)\\s*\\(\\s*\x60(?:SELECT|INSERT|UPDATE|DELETE)[^\x60]*\\$\\{[^}]+\\}",
			"Template literal interpolates variables into a SQL query",
			"Use a prepared statement instead of interpolating into the query"),

		rule("INJ003", "Python f-string SQL", pyOnly,
			`(?i)(?:execute|cursor\.execute)\s*\(\s*f['"](?:SELECT|INSERT|UPDATE|DELETE)[^'"]*\{[^}]+\}`,
			"SQL query is built with an f-string",
			`Pass parameters separately: cursor.execute("SELECT * FROM users WHERE id = %s", (user_id,))`),
		rule("INJ004", "Python format SQL", pyOnly,
			`(?i)(?:execute|cursor\.execute)\s*\(\s*['"](?:SELECT|INSERT|UPDATE|DELETE)[^'"]*['"]\.format\s*\(`,
			"SQL query is built with .format()",
			"Use a parameterized query"),
		rule("INJ005", "Python % formatting SQL", pyOnly,
			`(?i)(?:execute|cursor\.execute)\s*\(\s*['"](?:SELECT|INSERT|UPDATE|DELETE)[^'"]*%s[^'"]*['"].*%`,
			"SQL query is built with %-formatting",
			"Pass parameters as the second argument of execute()"),

		rule("INJ006", "Java String Concat SQL", javaOnly,
			`(?i)(?:executeQuery|executeUpdate|prepareStatement)\s*\(\s*['"](?:SELECT|INSERT|UPDATE|DELETE)[^'"]*['"]\s*\+`,
			"SQL query is built by string concatenation",
			`Use PreparedStatement: conn.prepareStatement("SELECT * FROM users WHERE id = ?"); ps.setInt(1, userId);`),

		rule("INJ007", "Raw SQL with Variable", all,
			`(?i)['"\x60](?:SELECT|INSERT|UPDATE|DELETE)\s+.+(?:WHERE|VALUES|SET)\s+.+['"\x60]\s*\+\s*\w+`,
			"A variable is appended directly to a SQL query",
			"Use an ORM or a prepared statement"),

		rule("INJ008", "MongoDB Injection", jsFamily,
			`(?i)(?:find|findOne|updateOne|deleteOne)\s*\(\s*\{[^}]*:\s*(?:req\.|params\.|body\.|query\.)`,
			"User input flows straight into a MongoDB query (NoSQL injection)",
			"Sanitize input (e.g. mongo-sanitize) or validate it against a schema"),

		rule("INJ009", "Command Injection", jsPy,
			`(?i)(?:exec|spawn|execSync|spawnSync|system|popen)\s*\([^)]*(?:req\.|params\.|body\.|query\.|input)`,
			"User input reaches a system command (command injection)",
			"Never pass user input to a shell. If unavoidable, validate against an allow-list"),
	}
}
