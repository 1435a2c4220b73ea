package validate

import (
	"fmt"
	"regexp"

	"github.com/dop251/goja/parser"
)

// probeJSOrTS parses content as an ECMAScript module using goja's parser in
// permissive (non-strict) mode, per spec.md §4.5. Grounded on the DOMAIN
// STACK's dop251/goja wiring: goja is the only ECMAScript-capable parser in
// the example pack's transitive dependency graph.
//
// TypeScript has no Go-native parser in the pack either; since goja only
// understands ECMAScript, TypeScript-only syntax (type annotations,
// interfaces, generics) is stripped with a best-effort regex pass before
// parsing. This cannot catch type-level errors — only gross structural
// syntax errors survive the strip, which matches spec.md's "permissive
// settings" framing for this language family.
func probeJSOrTS(filename, content, language string) error {
	src := content
	if language == "typescript" {
		src = stripTypeScriptSyntax(content)
	}

	if _, err := parser.ParseFile(nil, filename, src, 0); err != nil {
		return fmt.Errorf("%s syntax error: %w", language, err)
	}
	return nil
}

var (
	interfaceBlockRe = regexp.MustCompile(`(?s)\binterface\s+\w+[^{]*\{[^}]*\}`)
	typeAliasRe      = regexp.MustCompile(`(?m)^\s*type\s+\w+[^=]*=.*$`)
	paramTypeRe      = regexp.MustCompile(`(?m):\s*[A-Za-z_][\w.<>\[\]| ]*([,)=;{]|$)`)
	genericCallRe    = regexp.MustCompile(`<[A-Za-z_][\w, ]*>(\()`)
	asCastRe         = regexp.MustCompile(`\s+as\s+[A-Za-z_][\w.<>\[\]]*`)
)

func stripTypeScriptSyntax(content string) string {
	s := interfaceBlockRe.ReplaceAllString(content, "")
	s = typeAliasRe.ReplaceAllString(s, "")
	s = asCastRe.ReplaceAllString(s, "")
	s = genericCallRe.ReplaceAllString(s, "${1}")
	s = paramTypeRe.ReplaceAllString(s, "${1}")
	return s
}
