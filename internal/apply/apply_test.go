package apply

import (
	"strings"
	"testing"

	"crforge/internal/cst"
	"crforge/internal/headers"
	"crforge/internal/integration"
)

func mustHeader(t *testing.T, line string) *headers.Header {
	t.Helper()
	h, err := headers.ParseUnit(line)
	if err != nil {
		t.Fatalf("bad header %q: %v", line, err)
	}
	return h
}

// TestScenarioS1ImportInsertion covers an import insertion after an existing import.
func TestScenarioS1ImportInsertion(t *testing.T) {
	tree, err := cst.Load("s1.py", []byte("import os\nimport time\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	resolveHeader := mustHeader(t, "#-- cr_op: insert_after, cr_type: import, cr_anc: import time, cr_id: 9999-99-99-99-99-99 --#")

	applied := Apply(tree.Module, resolveHeader, &integration.Payload{Text: "import re\n", Kind: cst.KindImport})
	if !applied {
		t.Fatal("expected the op to apply")
	}
	out := tree.Module.Render()
	if strings.Count(out, "import re\n") != 1 {
		t.Fatalf("expected exactly one 'import re' line, got:\n%s", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 || lines[0] != "import os" || lines[1] != "import time" ||
		!strings.HasPrefix(lines[2], "#-- cr_op: insert_after") || lines[3] != "import re" {
		t.Fatalf("unexpected line order: %v", lines)
	}
}

const s2Source = `class C:
    def m(self):
        return "old"
`

// TestScenarioS2MethodReplaceIdempotent covers a method replace that is idempotent on reapplication.
func TestScenarioS2MethodReplaceIdempotent(t *testing.T) {
	h := mustHeader(t, "#-- cr_op: replace, cr_type: method, cr_anc: C.m, cr_id: 9999-99-99-99-99-99 --#")
	payload := &integration.Payload{Text: "    def m(self):\n        return \"new\"\n", Kind: cst.KindFunction, Name: "m"}

	tree, err := cst.Load("s2.py", []byte(s2Source))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var classItem *cst.Item
	for i := range tree.Module.Items {
		if tree.Module.Items[i].Kind == cst.KindClass {
			classItem = &tree.Module.Items[i]
		}
	}
	if classItem == nil {
		t.Fatal("expected a class item")
	}

	if !Apply(classItem.Body, h, payload) {
		t.Fatal("expected first apply to succeed")
	}
	first := classItem.Body.Render()
	if strings.Contains(first, `"old"`) {
		t.Fatalf("old body should be gone:\n%s", first)
	}

	if !Apply(classItem.Body, h, payload) {
		t.Fatal("expected second apply (no-op) to succeed")
	}
	second := classItem.Body.Render()
	if first != second {
		t.Fatalf("expected idempotent output, got:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

const s3Source = `class C:
    def m(self):
        pass
`

// TestScenarioS3InsertBeforeAndAfterChain covers a chain of insert_before/insert_after ops.
func TestScenarioS3InsertBeforeAndAfterChain(t *testing.T) {
	tree, err := cst.Load("s3.py", []byte(s3Source))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	classItem := &tree.Module.Items[0]

	before := mustHeader(t, "#-- cr_op: insert_before, cr_type: method, cr_anc: C.m, cr_id: 9999-99-99-99-99-99 --#")
	after := mustHeader(t, "#-- cr_op: insert_after, cr_type: method, cr_anc: C.m, cr_id: 9999-99-99-99-99-99 --#")

	prePayload := &integration.Payload{Text: "    def pre(self):\n        pass\n", Kind: cst.KindFunction, Name: "pre"}
	postPayload := &integration.Payload{Text: "    def post(self):\n        pass\n", Kind: cst.KindFunction, Name: "post"}

	if !Apply(classItem.Body, before, prePayload) {
		t.Fatal("expected insert_before to apply")
	}
	if !Apply(classItem.Body, after, postPayload) {
		t.Fatal("expected insert_after to apply")
	}

	var order []string
	for _, it := range classItem.Body.Items {
		if it.Kind == cst.KindMethod {
			order = append(order, it.Name)
		}
	}
	if len(order) != 3 || order[0] != "pre" || order[1] != "m" || order[2] != "post" {
		t.Fatalf("expected order [pre m post], got %v", order)
	}
}

// TestScenarioS3InsertBeforeAndAfterIdempotent covers reapplying the same
// insert_before/insert_after ops a second time without duplicating either
// inserted method.
func TestScenarioS3InsertBeforeAndAfterIdempotent(t *testing.T) {
	tree, err := cst.Load("s3.py", []byte(s3Source))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	classItem := &tree.Module.Items[0]

	before := mustHeader(t, "#-- cr_op: insert_before, cr_type: method, cr_anc: C.m, cr_id: 9999-99-99-99-99-99 --#")
	after := mustHeader(t, "#-- cr_op: insert_after, cr_type: method, cr_anc: C.m, cr_id: 9999-99-99-99-99-99 --#")

	prePayload := &integration.Payload{Text: "    def pre(self):\n        pass\n", Kind: cst.KindFunction, Name: "pre"}
	postPayload := &integration.Payload{Text: "    def post(self):\n        pass\n", Kind: cst.KindFunction, Name: "post"}

	if !Apply(classItem.Body, before, prePayload) {
		t.Fatal("expected first insert_before to apply")
	}
	if !Apply(classItem.Body, after, postPayload) {
		t.Fatal("expected first insert_after to apply")
	}
	first := classItem.Body.Render()

	if !Apply(classItem.Body, before, prePayload) {
		t.Fatal("expected second insert_before (no-op) to apply")
	}
	if !Apply(classItem.Body, after, postPayload) {
		t.Fatal("expected second insert_after (no-op) to apply")
	}
	second := classItem.Body.Render()

	if first != second {
		t.Fatalf("expected idempotent output, got:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	var count int
	for _, it := range classItem.Body.Items {
		if it.Kind == cst.KindMethod && (it.Name == "pre" || it.Name == "post") {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected exactly one pre and one post method, got %d matching items in:\n%s", count, second)
	}
}

const s4Source = `class C:
    def dead(self):
        pass
`

// TestScenarioS4MethodRemove covers removing an existing method.
func TestScenarioS4MethodRemove(t *testing.T) {
	tree, err := cst.Load("s4.py", []byte(s4Source))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	classItem := &tree.Module.Items[0]
	h := mustHeader(t, "#-- cr_op: remove, cr_type: method, cr_anc: C.dead, cr_id: 9999-99-99-99-99-99 --#")

	if !Apply(classItem.Body, h, nil) {
		t.Fatal("expected remove to apply")
	}
	out := classItem.Body.Render()
	if strings.Contains(out, "def dead") {
		t.Fatalf("expected dead method to be gone:\n%s", out)
	}
	if strings.Count(out, "#-- cr_op: remove") != 1 {
		t.Fatalf("expected exactly one marker line to survive:\n%s", out)
	}
}

func TestApplyReturnsFalseWhenAnchorMissing(t *testing.T) {
	tree, err := cst.Load("x.py", []byte("import os\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	h := mustHeader(t, "#-- cr_op: replace, cr_type: function, cr_anc: missing, cr_id: 9999-99-99-99-99-99 --#")
	if Apply(tree.Module, h, &integration.Payload{Text: "def missing(): pass\n", Kind: cst.KindFunction, Name: "missing"}) {
		t.Fatal("expected Apply to report unresolved anchor as not applied")
	}
}
