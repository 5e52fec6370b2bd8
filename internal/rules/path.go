package rules

import (
	"regexp"

	"github.com/devos-os/d-scan/internal/core"
)

func pathRules() []Rule {
	rule := func(id, name string, sev core.Severity, pattern, msg, fix string) Rule {
		return Rule{
			ID:       id,
			Name:     name,
			Category: core.CatPath,
			Pattern:  regexp.MustCompile(pattern),
			Severity: sev,
			Message:  msg,
			Fix:      fix,
			Taxonomy: Taxonomy{OWASP: owaspAccess, CWE: "CWE-22"},
			MaxMatch: 60,
		}
	}

	fileType := rule("PATH007", "Missing File Type Validation", core.SevMedium,
		`(?i)multer|upload|formidable|busboy`,
		"File upload without visible type validation",
		"Validate both mimetype and extension (magic numbers preferred)")
	fileType.ExcludeLine = regexp.MustCompile(`(?i)mimetype|fileFilter`)

	symlink := rule("PATH011", "Symlink Following Risk", core.SevLow,
		`(?i)(?:readFile|createReadStream)\s*\([^)]+\)`,
		"Following symlinks can expose unintended files",
		"Check with lstat() first or resolve with realpath()")
	symlink.ExcludeLine = regexp.MustCompile(`(?i)lstat`)

	return []Rule{
		rule("PATH001", "Path Traversal Risk", core.SevCritical,
			`(?i)(?:readFile|writeFile|unlink|rmdir|mkdir|access|stat|createReadStream|createWriteStream)\s*\(\s*(?:req\.|params\.|body\.|query\.|input)`,
			"A file path is built from user input (path traversal)",
			"Take only path.basename() or restrict paths with an allow-list"),
		rule("PATH002", "Path Traversal (Path Join)", core.SevHigh,
			`(?i)path\.join\s*\([^,]+,\s*(?:req\.|params\.|body\.|query\.)`,
			"path.join() with user input is open to ../ attacks",
			"Normalize with path.basename() or verify the result stays inside the base directory"),
		rule("PATH003", "Path Traversal Pattern", core.SevMedium,
			`\.\.[/\\]`,
			"A ../ sequence appears in code; check it for path traversal",
			"Use absolute paths or strip .. from user input"),

		rule("PATH004", "Dangerous File Delete", core.SevCritical,
			`(?i)(?:unlink|rmdir|rm|remove).*(?:req\.|params\.|body\.|query\.)`,
			"Files are deleted based on user input",
			"Restrict deletable paths with an allow-list"),
		rule("PATH005", "Recursive Delete", core.SevHigh,
			`(?i)rm\s*\(\s*[^,]+,\s*\{\s*recursive\s*:\s*true`,
			"Recursive delete is destructive when misused",
			"Verify the path is inside the expected directory first"),

		// Загрузка файлов
		rule("PATH006", "Unsafe File Upload", core.SevMedium,
			`(?i)(?:originalname|filename|name)\s*(?:\.split|\.slice|\.substring)`,
			"The uploaded file name is used directly",
			"Generate a new name (UUID) and allow-list extensions"),
		fileType,
		rule("PATH008", "Executable Upload Risk", core.SevHigh,
			`(?i)\.(exe|sh|bat|cmd|ps1|php|jsp|asp|py|rb|pl)\b.*upload`,
			"Executable extensions appear in upload code",
			"Block executable uploads"),

		// Временные файлы
		rule("PATH009", "Hardcoded Temp Path", core.SevLow,
			`(?i)['"]/tmp/|['"]C:\\Temp\\`,
			"Hardcoded temp paths are not portable",
			"Use os.tmpdir()"),
		rule("PATH010", "Predictable Temp Filename", core.SevMedium,
			`(?i)/tmp/[a-zA-Z_]+\.(txt|log|tmp)`,
			"Predictable temp file names are open to symlink attacks",
			"Use mkdtemp() or random names"),
		symlink,

		rule("PATH012", "Directory Listing", core.SevMedium,
			`(?i)(?:readdir|readdirSync)\s*\(\s*(?:req\.|params\.|body\.|query\.)`,
			"A directory chosen by user input is listed",
			"Allow-list readable directories"),

		rule("PATH013", "Overly Permissive Mode", core.SevHigh,
			`(?i)chmod.*(?:0?777|0?666)|mode\s*:\s*(?:0?777|0?666)`,
			"777/666 permissions are too permissive",
			"Grant the minimum needed (e.g. 644, 755)"),

		// Python
		rule("PATH014", "Python Open with User Input", core.SevHigh,
			`(?i)open\s*\(\s*(?:request\.|args\.|input\()`,
			"A file is opened from user input",
			"Normalize with os.path.basename() and allow-list paths"),
		rule("PATH015", "Python Pickle Deserialization", core.SevCritical,
			`(?i)pickle\.load|cPickle\.load|joblib\.load`,
			"Unpickling untrusted data executes arbitrary code",
			"Never unpickle untrusted data; use JSON or another safe format"),

		// Java
		rule("PATH016", "Java Zip Slip", core.SevHigh,
			`(?i)ZipEntry.*getName\s*\(\s*\)`,
			"Zip extraction may be open to Zip Slip",
			`Reject entry names containing "../"`),
		rule("PATH017", "Java File with User Input", core.SevHigh,
			`(?i)new\s+File\s*\(\s*(?:request\.|params\.|input)`,
			"A File is built from user input",
			"Normalize with Path.normalize() and validate the path"),
	}
}
