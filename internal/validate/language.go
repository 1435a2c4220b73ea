package validate

import "strings"

// extensionLanguage maps file extensions to a lowercase language tag.
// Grounded on andymwolf-agentium/internal/scanner/language.go's
// languageMapping, trimmed to the languages the Validator actually probes
// (spec.md §4.5); other recognized extensions still detect for reporting
// purposes but get no syntax-only probe.
var extensionLanguage = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".rs":   "rust",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".java": "java",
	".rb":   "ruby",
	".php":  "php",
	".c":    "c",
	".cpp":  "c++",
	".cc":   "c++",
	".cs":   "c#",
	".sh":   "shell",
	".bash": "shell",
}

// DetectLanguage maps a file's extension to a language tag, or "" if
// unrecognized.
func DetectLanguage(path string) string {
	ext := extOf(path)
	return extensionLanguage[ext]
}

func extOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(path[idx:])
}

// probedLanguages is the set of languages with a syntax-only probe
// implemented.
var probedLanguages = map[string]bool{
	"go":         true,
	"python":     true,
	"javascript": true,
	"typescript": true,
	"rust":       true,
	"json":       true,
	"yaml":       true,
}

// HasProbe reports whether language has a registered syntax-only probe.
func HasProbe(language string) bool {
	return probedLanguages[language]
}
