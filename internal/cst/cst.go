// Package cst loads a Python source file into a concrete syntax tree that
// preserves every byte of trivia (comments, blank lines, indentation) and
// exposes it as an ordered, splice-friendly statement list per scope.
//
// tree-sitter's trees in this ecosystem binding are read-only, so rather
// than mutate the tree this package records byte-range spans per top-level
// statement (module scope) and per method (class scope) and performs all
// edits as slice operations over an Item list, re-rendering by string
// concatenation. This is the line+range fallback model: a write-capable
// Python CST library does not exist in Go, and tree-sitter's concrete tree
// is lossless, so classifying spans off of it and splicing the original
// bytes preserves everything untouched statements carry.
package cst

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Kind classifies a single Item within a Block.
type Kind int

const (
	// KindFiller covers everything that is not itself a named definition:
	// blank lines, comments, docstrings, bare expression statements, and
	// any other top-level statement this engine does not address directly.
	KindFiller Kind = iota
	KindImport
	KindClass
	KindFunction
	KindMethod
)

func (k Kind) String() string {
	switch k {
	case KindImport:
		return "import"
	case KindClass:
		return "class"
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	default:
		return "filler"
	}
}

// Item is one entry in a Block: either a classified definition (import,
// class, function, method) or a filler span of verbatim source text.
type Item struct {
	Kind Kind
	Name string
	Text string

	// Body is populated only for KindClass items: the class's own body,
	// modeled the same way (methods plus filler between them).
	Body *Block

	// Prefix is populated only for KindClass items: the class's source
	// text from its own start up to (not including) its body, so Render
	// can recombine it with Body's current contents after method edits
	// instead of falling back to the stale whole-class Text.
	Prefix string
}

// Normalized returns the item's text with outer whitespace stripped, used
// for semantic-equality comparisons.
func (it Item) Normalized() string {
	return normalize(it.Text)
}

// render returns the item's current text: Prefix+Body.Render() for a class
// whose body has been modeled, or Text for everything else.
func (it Item) render() string {
	if it.Kind == KindClass && it.Body != nil {
		return it.Prefix + it.Body.Render()
	}
	return it.Text
}

// Block is an ordered, splice-friendly list of Items belonging to one
// lexical scope (a module body or a class body).
type Block struct {
	Items []Item
}

// Render concatenates every item's current text back into source text,
// recursing into class bodies so method edits are reflected.
func (b *Block) Render() string {
	var out []byte
	for _, it := range b.Items {
		out = append(out, it.render()...)
	}
	return string(out)
}

// Insert splices items at position idx (0 <= idx <= len(Items)), shifting
// later items forward. idx == len(Items) appends.
func (b *Block) Insert(idx int, items ...Item) {
	if idx < 0 || idx > len(b.Items) {
		idx = len(b.Items)
	}
	tail := append([]Item{}, b.Items[idx:]...)
	b.Items = append(b.Items[:idx], append(items, tail...)...)
}

// ReplaceRange replaces Items[start:end] (end exclusive) with items.
func (b *Block) ReplaceRange(start, end int, items ...Item) {
	tail := append([]Item{}, b.Items[end:]...)
	b.Items = append(b.Items[:start], append(items, tail...)...)
}

// Tree is a loaded, parsed source file.
type Tree struct {
	Source []byte
	Module *Block
}

// Render serializes the whole tree back to source text, reflecting any
// edits made to Module or to any class's Body.
func (t *Tree) Render() string {
	return t.Module.Render()
}

// Load parses Python source bytes into a Tree. Returns a *ParseError
// wrapping the tree-sitter failure when the source cannot be parsed.
func Load(path string, source []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	sitterTree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer sitterTree.Close()

	root := sitterTree.RootNode()
	if root.HasError() {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("syntax error in parsed tree")}
	}

	module := buildBlock(root, source)
	return &Tree{Source: source, Module: module}, nil
}

// ParseError reports that a source file could not be parsed into a valid
// concrete syntax tree.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cst: parse error in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// buildBlock walks the named children of a module or class-body node and
// classifies each into an Item, filling the gaps between them (and before
// the first / after the last) with KindFiller items so the full byte range
// is covered exactly once.
func buildBlock(scope *sitter.Node, source []byte) *Block {
	block := &Block{}
	childCount := int(scope.ChildCount())
	var cursor uint32 = scope.StartByte()

	emitFiller := func(from, to uint32) {
		if to <= from {
			return
		}
		block.Items = append(block.Items, Item{Kind: KindFiller, Text: string(source[from:to])})
	}

	for i := 0; i < childCount; i++ {
		child := scope.Child(i)
		if child == nil {
			continue
		}
		kind, name, defNode := classify(child, source)
		if kind == KindFiller {
			continue // folded into the surrounding filler span below
		}
		emitFiller(cursor, child.StartByte())
		text := string(source[child.StartByte():child.EndByte()])
		item := Item{Kind: kind, Name: name, Text: text}
		if kind == KindClass {
			item.Body = buildClassBody(defNode, source)
			item.Prefix = classPrefix(defNode, child, source)
		}
		block.Items = append(block.Items, item)
		cursor = child.EndByte()
	}
	emitFiller(cursor, scope.EndByte())
	return block
}

// classPrefix returns the class's source text from the start of its full
// item span (which may include a decorator) up to the start of its body,
// so Render can recombine it with the body's current items.
func classPrefix(classDef, fullNode *sitter.Node, source []byte) string {
	if classDef == nil {
		return string(source[fullNode.StartByte():fullNode.EndByte()])
	}
	body := classDef.ChildByFieldName("body")
	if body == nil {
		return string(source[fullNode.StartByte():fullNode.EndByte()])
	}
	return string(source[fullNode.StartByte():body.StartByte()])
}

// buildClassBody locates a class_definition's body block and models it the
// same way as the module, except function_definitions inside it are
// reclassified as KindMethod.
func buildClassBody(classDef *sitter.Node, source []byte) *Block {
	if classDef == nil {
		return &Block{}
	}
	body := classDef.ChildByFieldName("body")
	if body == nil {
		return &Block{}
	}
	block := buildBlock(body, source)
	for i := range block.Items {
		if block.Items[i].Kind == KindFunction {
			block.Items[i].Kind = KindMethod
		}
	}
	return block
}

// classify determines the Kind and defined name of a direct child of a
// module or class body. decorated_definition is unwrapped to find the real
// kind/name while the returned defNode is the inner definition node (used
// by buildClassBody to find the class's own body field); the item's Text
// span still covers the full decorated node via the caller's byte range.
func classify(n *sitter.Node, source []byte) (kind Kind, name string, defNode *sitter.Node) {
	nodeType := n.Type()
	target := n
	if nodeType == "decorated_definition" {
		inner := n.ChildByFieldName("definition")
		if inner != nil {
			target = inner
			nodeType = inner.Type()
		}
	}
	switch nodeType {
	case "import_statement", "import_from_statement":
		return KindImport, "", nil
	case "function_definition":
		nameNode := target.ChildByFieldName("name")
		if nameNode == nil {
			return KindFiller, "", nil
		}
		return KindFunction, nameNode.Content(source), nil
	case "class_definition":
		nameNode := target.ChildByFieldName("name")
		if nameNode == nil {
			return KindFiller, "", nil
		}
		return KindClass, nameNode.Content(source), target
	default:
		return KindFiller, "", nil
	}
}

func normalize(s string) string {
	return trimSpace(s)
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
