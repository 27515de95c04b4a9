package cst

import (
	"strings"
	"testing"
)

const sampleSource = `import os
import time


class Worker:
    """Does work."""

    def run(self):
        return "old"

    def dead(self):
        pass
`

func TestLoadClassifiesTopLevel(t *testing.T) {
	tree, err := Load("sample.py", []byte(sampleSource))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var kinds []Kind
	var names []string
	for _, it := range tree.Module.Items {
		if it.Kind != KindFiller {
			kinds = append(kinds, it.Kind)
			names = append(names, it.Name)
		}
	}
	if len(kinds) != 3 {
		t.Fatalf("expected 3 non-filler items, got %d (%v)", len(kinds), names)
	}
	if kinds[0] != KindImport || kinds[1] != KindImport || kinds[2] != KindClass {
		t.Fatalf("unexpected kinds: %v", kinds)
	}
	if names[2] != "Worker" {
		t.Fatalf("expected class name Worker, got %q", names[2])
	}
}

func TestLoadRenderIsIdentity(t *testing.T) {
	tree, err := Load("sample.py", []byte(sampleSource))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tree.Module.Render(); got != sampleSource {
		t.Fatalf("render did not reproduce source verbatim:\n--- got ---\n%s\n--- want ---\n%s", got, sampleSource)
	}
}

func TestClassBodyClassifiesMethods(t *testing.T) {
	tree, err := Load("sample.py", []byte(sampleSource))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var classItem *Item
	for i := range tree.Module.Items {
		if tree.Module.Items[i].Kind == KindClass {
			classItem = &tree.Module.Items[i]
		}
	}
	if classItem == nil || classItem.Body == nil {
		t.Fatal("expected a class item with a body")
	}
	var methodNames []string
	for _, it := range classItem.Body.Items {
		if it.Kind == KindMethod {
			methodNames = append(methodNames, it.Name)
		}
	}
	if len(methodNames) != 2 || methodNames[0] != "run" || methodNames[1] != "dead" {
		t.Fatalf("unexpected method names: %v", methodNames)
	}
}

func TestBlockInsertAndReplaceRange(t *testing.T) {
	b := &Block{Items: []Item{
		{Kind: KindImport, Text: "import os\n"},
		{Kind: KindFiller, Text: "\n"},
		{Kind: KindFunction, Name: "f", Text: "def f():\n    pass\n"},
	}}
	b.Insert(1, Item{Kind: KindImport, Text: "import re\n"})
	if len(b.Items) != 4 || b.Items[1].Text != "import re\n" {
		t.Fatalf("insert did not splice at the right position: %+v", b.Items)
	}
	b.ReplaceRange(3, 4, Item{Kind: KindFunction, Name: "g", Text: "def g():\n    pass\n"})
	if b.Items[3].Name != "g" {
		t.Fatalf("replace range failed: %+v", b.Items)
	}
}

func TestLoadRejectsInvalidSyntax(t *testing.T) {
	_, err := Load("bad.py", []byte("def f(:\n"))
	if err == nil {
		t.Fatal("expected a parse error for invalid syntax")
	}
	if !strings.Contains(err.Error(), "bad.py") {
		t.Fatalf("expected error to mention path, got %v", err)
	}
}

func TestItemNormalized(t *testing.T) {
	it := Item{Text: "  def f():\n    pass\n  "}
	if it.Normalized() != "def f():\n    pass" {
		t.Fatalf("unexpected normalized text: %q", it.Normalized())
	}
}

func TestTreeRenderReflectsClassBodyEdits(t *testing.T) {
	tree, err := Load("sample.py", []byte(sampleSource))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var classItem *Item
	for i := range tree.Module.Items {
		if tree.Module.Items[i].Kind == KindClass {
			classItem = &tree.Module.Items[i]
		}
	}
	if classItem == nil {
		t.Fatal("expected a class item")
	}
	classItem.Body.ReplaceRange(0, 0, Item{Kind: KindMethod, Name: "added", Text: "    def added(self):\n        return 1\n\n"})

	rendered := tree.Render()
	if !strings.Contains(rendered, "def added(self):") {
		t.Fatalf("expected rendered tree to include the new method, got:\n%s", rendered)
	}
	if !strings.Contains(rendered, "def run(self):") {
		t.Fatalf("expected rendered tree to still include the original method, got:\n%s", rendered)
	}
}
