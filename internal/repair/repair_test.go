package repair

import "testing"

func TestRepairJSONStrictParse(t *testing.T) {
	rec, err := RepairJSON(`{"target": "x.py", "code": "print(1)\n"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Target != "x.py" {
		t.Fatalf("unexpected target: %q", rec.Target)
	}
}

func TestRepairJSONCarvesProseAroundBraces(t *testing.T) {
	blob := "Sure, here is the result:\n{\"target\": \"x.py\", \"code\": \"pass\\n\"}\nLet me know if you need anything else."
	rec, err := RepairJSON(blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Target != "x.py" {
		t.Fatalf("unexpected target: %q", rec.Target)
	}
}

func TestRepairJSONStripsTrailingComma(t *testing.T) {
	blob := `{"target": "x.py", "code": "pass\n",}`
	rec, err := RepairJSON(blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Target != "x.py" {
		t.Fatalf("unexpected target: %q", rec.Target)
	}
}

func TestRepairJSONScenarioS6(t *testing.T) {
	blob := "{ 'target': 'x.py', 'code': 'print(1)\\n', }"
	rec, err := RepairJSON(blob)
	if err != nil {
		t.Fatalf("S6 scenario should recover: %v", err)
	}
	if rec.Target != "x.py" {
		t.Fatalf("unexpected target: %q", rec.Target)
	}
}

func TestRepairJSONFailsOnMissingTarget(t *testing.T) {
	if _, err := RepairJSON(`{"code": "pass\n"}`); err == nil {
		t.Fatal("expected failure when target key is absent")
	}
}

func TestRepairMarkdownStripsFenceAndProse(t *testing.T) {
	blob := "Here you go:\n```python\n#--- cr_op: update, cr_type: file, cr_anc: x.py, cr_id: 1 ---#\nimport os\n```"
	out, err := RepairMarkdown(blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "#--- cr_op: update, cr_type: file, cr_anc: x.py, cr_id: 1 ---#\nimport os\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestRepairMarkdownFailsWithoutHeader(t *testing.T) {
	if _, err := RepairMarkdown("just some prose, no header here"); err == nil {
		t.Fatal("expected failure when no package header is present")
	}
}
