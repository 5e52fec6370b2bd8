package rules

import (
	"regexp"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/source"
)

func xssRules() []Rule {
	rule := func(id, name string, sev core.Severity, langs []source.Language, pattern, msg, fix string) Rule {
		return Rule{
			ID:        id,
			Name:      name,
			Category:  core.CatXSS,
			Languages: langs,
			Pattern:   regexp.MustCompile(pattern),
			Severity:  sev,
			Message:   msg,
			Fix:       fix,
			Taxonomy:  Taxonomy{OWASP: owaspInjection, CWE: "CWE-79"},
		}
	}

	ts := []source.Language{source.LangTypeScript}
	web := []source.Language{source.LangJavaScript, source.LangTypeScript, source.LangPython, source.LangJava}

	// "не начинается с литерала <": RE2 без lookahead, поэтому перечисляем явно
	const notMarkupLiteral = `(?:[^'"\x60\s]|['"\x60][^<])`

	return []Rule{
		// React
		rule("XSS001", "dangerouslySetInnerHTML", core.SevHigh, jsFamily,
			`(?i)dangerouslySetInnerHTML\s*=\s*\{\s*\{\s*__html\s*:`,
			"dangerouslySetInnerHTML is used without sanitization",
			"Sanitize first: dangerouslySetInnerHTML={{ __html: DOMPurify.sanitize(html) }}"),

		rule("XSS002", "innerHTML Assignment", core.SevHigh, jsFamily,
			`(?i)\.innerHTML\s*=\s*`+notMarkupLiteral,
			"A dynamic value is assigned to innerHTML",
			"Use textContent, or sanitize with DOMPurify when HTML is required"),
		rule("XSS003", "outerHTML Assignment", core.SevHigh, jsFamily,
			`(?i)\.outerHTML\s*=\s*`+notMarkupLiteral,
			"A dynamic value is assigned to outerHTML",
			"Build elements with the DOM API"),

		rule("XSS004", "document.write", core.SevMedium, jsFamily,
			`(?i)document\.write\s*\(`,
			"document.write() is unsafe and slow",
			"Use createElement / appendChild"),

		// jQuery
		rule("XSS005", "jQuery html()", core.SevHigh, jsFamily,
			`(?i)\$\([^)]+\)\.html\s*\(\s*`+notMarkupLiteral,
			"A dynamic value is passed to jQuery .html()",
			"Use .text(), or sanitize when HTML is required"),
		rule("XSS006", "jQuery append with variable", core.SevMedium, jsFamily,
			`(?i)\$\([^)]+\)\.(?:append|prepend|after|before)\s*\(\s*(?:['"\x60]\s*<[^>]+>\s*['"\x60]\s*\+|\$\s*\()`,
			"jQuery DOM manipulation uses string concatenation",
			"Create the element first, set its value with .text(), then insert it"),

		rule("XSS007", "Vue v-html", core.SevHigh, jsFamily,
			`(?i)v-html\s*=\s*['"][^'"]+['"]`,
			"v-html renders raw HTML and is open to XSS",
			"Prefer v-text or {{ }} interpolation; sanitize when v-html is unavoidable"),

		rule("XSS008", "Angular bypassSecurityTrust", core.SevMedium, ts,
			`(?i)bypassSecurityTrust(?:Html|Script|Style|Url|ResourceUrl)`,
			"Angular sanitization is bypassed",
			"Only bypass for trusted values and validate the input"),

		// Python (Flask, Django)
		rule("XSS009", "Flask Markup/safe", core.SevMedium, pyOnly,
			`(?i)Markup\s*\(|mark_safe\s*\(|\|safe\b`,
			"HTML is marked as safe; user input inside it is dangerous",
			"Never pass user input to mark_safe() or Markup()"),
		rule("XSS010", "Jinja autoescape off", core.SevMedium, pyOnly,
			`(?i)\{%\s*autoescape\s+false\s*%\}`,
			"Jinja2 autoescape is disabled",
			"Keep autoescape on and mark individual values safe"),

		// JSP
		rule("XSS011", "JSP Expression", core.SevMedium, javaOnly,
			`(?i)<%=\s*(?:request|session)\.`,
			"JSP prints request data without escaping",
			`Use JSTL: <c:out value="${param.name}" />`),

		rule("XSS012", "javascript: URL", core.SevMedium, web,
			`(?i)href\s*=\s*['"\x60]javascript:`,
			"javascript: URLs are a primary XSS vector",
			"Use an onclick handler instead of a javascript: URL"),

		rule("XSS013", "eval() Usage", core.SevCritical, jsFamily,
			`(?i)\beval\s*\(`,
			"eval() executes arbitrary code",
			"Use JSON.parse() or another safe alternative"),
		rule("XSS014", "new Function()", core.SevCritical, jsFamily,
			`(?i)new\s+Function\s*\(`,
			"new Function() is as dangerous as eval()",
			"Reconsider whether dynamic code execution is needed at all"),
	}
}
