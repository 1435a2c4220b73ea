package validate

import "testing"

func TestProbeJSValid(t *testing.T) {
	if err := probeJSOrTS("app.js", "function greet(name) { return 'hi ' + name; }", "javascript"); err != nil {
		t.Fatalf("expected valid JS, got %v", err)
	}
}

func TestProbeJSInvalid(t *testing.T) {
	if err := probeJSOrTS("app.js", "function greet(name) { return 'hi' ", "javascript"); err == nil {
		t.Fatalf("expected syntax error for unbalanced JS")
	}
}

func TestProbeTSStripsAnnotations(t *testing.T) {
	src := `
interface Greeting {
  name: string;
}

function greet(name: string): string {
  return "hi " + name;
}
`
	if err := probeJSOrTS("app.ts", src, "typescript"); err != nil {
		t.Fatalf("expected TS-stripped source to parse, got %v", err)
	}
}
