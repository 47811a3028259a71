// Package schema parses the restricted structured-data subset embedded in
// doc comments: nested mappings, ordered sequences and scalars, nothing
// more. The grammar is deliberately narrow and the parser deliberately
// strict; every node keeps the source line it started on so validation
// failures can point into the real file.
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the three node shapes of the grammar.
type Kind int

const (
	Mapping Kind = iota
	Sequence
	Scalar
)

func (k Kind) String() string {
	switch k {
	case Mapping:
		return "mapping"
	case Sequence:
		return "sequence"
	default:
		return "scalar"
	}
}

// Node is one parsed element of an embedded schema block.
type Node struct {
	Kind Kind
	Line int

	// Mapping: Keys preserves declaration order.
	Keys     []string
	Children map[string]*Node

	// Sequence.
	Items []*Node

	// Scalar: string, int64, float64, bool or nil.
	Value any
}

// Get returns the child node for key, or nil if n is not a mapping or the
// key is absent.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != Mapping {
		return nil
	}
	return n.Children[key]
}

// Has reports whether the mapping defines key.
func (n *Node) Has(key string) bool { return n.Get(key) != nil }

// Str returns the scalar string value, if n is a string scalar.
func (n *Node) Str() (string, bool) {
	if n == nil || n.Kind != Scalar {
		return "", false
	}
	s, ok := n.Value.(string)
	return s, ok
}

// Bool returns the scalar boolean value, if n is a boolean scalar.
func (n *Node) Bool() (bool, bool) {
	if n == nil || n.Kind != Scalar {
		return false, false
	}
	b, ok := n.Value.(bool)
	return b, ok
}

// ScalarString renders a scalar value for error messages.
func (n *Node) ScalarString() string {
	if n == nil || n.Kind != Scalar {
		return ""
	}
	if n.Value == nil {
		return "null"
	}
	return fmt.Sprintf("%v", n.Value)
}

// SyntaxError reports a malformed schema block at a specific source line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func syntaxErrf(line int, format string, args ...any) error {
	return &SyntaxError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

type srcLine struct {
	indent int
	text   string // content with indentation stripped
	num    int    // absolute source line
}

type parser struct {
	lines []srcLine
	pos   int
}

// Detect reports whether text contains a recognizable structured block: at
// least one mapping entry or sequence item. Plain prose is not a block and
// callers decide whether its absence is an error.
func Detect(text string) bool {
	for _, raw := range strings.Split(text, "\n") {
		t := strings.TrimSpace(raw)
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		if isSequenceItem(t) {
			return true
		}
		if i := keyColon(t); i > 0 {
			return true
		}
	}
	return false
}

// Parse parses an embedded schema block out of text. baseLine is the source
// line of the first line of text, so node lines land in the real file.
// Returns (nil, nil) when no block is detected.
func Parse(text string, baseLine int) (*Node, error) {
	if !Detect(text) {
		return nil, nil
	}
	p := &parser{}
	for i, raw := range strings.Split(text, "\n") {
		num := baseLine + i
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		body := strings.TrimLeft(raw, " \t")
		if strings.ContainsRune(raw[:len(raw)-len(body)], '\t') {
			return nil, syntaxErrf(num, "tab used for indentation")
		}
		p.lines = append(p.lines, srcLine{
			indent: len(raw) - len(body),
			text:   strings.TrimRight(body, " \t"),
			num:    num,
		})
	}
	root, err := p.parseBlock(p.lines[0].indent)
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.lines) {
		l := p.lines[p.pos]
		return nil, syntaxErrf(l.num, "bad indentation (column %d has no open block)", l.indent)
	}
	return root, nil
}

func (p *parser) more() bool    { return p.pos < len(p.lines) }
func (p *parser) peek() srcLine { return p.lines[p.pos] }

func (p *parser) next() srcLine {
	l := p.lines[p.pos]
	p.pos++
	return l
}

func (p *parser) insert(l srcLine) {
	p.lines = append(p.lines[:p.pos], append([]srcLine{l}, p.lines[p.pos:]...)...)
}

func (p *parser) parseBlock(indent int) (*Node, error) {
	if isSequenceItem(p.peek().text) {
		return p.parseSequence(indent)
	}
	return p.parseMapping(indent)
}

func (p *parser) parseMapping(indent int) (*Node, error) {
	node := &Node{Kind: Mapping, Line: p.peek().num, Children: make(map[string]*Node)}
	for p.more() {
		l := p.peek()
		if l.indent < indent {
			break
		}
		if l.indent > indent {
			return nil, syntaxErrf(l.num, "bad indentation (expected column %d, got %d)", indent, l.indent)
		}
		if isSequenceItem(l.text) {
			return nil, syntaxErrf(l.num, "sequence item inside mapping")
		}
		ci := keyColon(l.text)
		if ci <= 0 {
			return nil, syntaxErrf(l.num, "expected a `key: value` entry")
		}
		key := strings.TrimSpace(strings.Trim(l.text[:ci], `"'`))
		if key == "" {
			return nil, syntaxErrf(l.num, "empty mapping key")
		}
		if _, dup := node.Children[key]; dup {
			return nil, syntaxErrf(l.num, "duplicate key %q", key)
		}
		rest := strings.TrimSpace(l.text[ci+1:])
		p.next()

		var child *Node
		var err error
		if rest == "" {
			if p.more() && p.peek().indent > indent {
				child, err = p.parseBlock(p.peek().indent)
			} else {
				child = &Node{Kind: Scalar, Line: l.num, Value: nil}
			}
		} else {
			child, err = parseScalar(rest, l.num)
		}
		if err != nil {
			return nil, err
		}
		node.Keys = append(node.Keys, key)
		node.Children[key] = child
	}
	return node, nil
}

func (p *parser) parseSequence(indent int) (*Node, error) {
	node := &Node{Kind: Sequence, Line: p.peek().num}
	for p.more() {
		l := p.peek()
		if l.indent < indent {
			break
		}
		if l.indent > indent {
			return nil, syntaxErrf(l.num, "bad indentation (expected column %d, got %d)", indent, l.indent)
		}
		if !isSequenceItem(l.text) {
			return nil, syntaxErrf(l.num, "mapping entry inside sequence")
		}
		content := strings.TrimLeft(strings.TrimPrefix(l.text, "-"), " ")
		p.next()

		var item *Node
		var err error
		switch {
		case content == "":
			if p.more() && p.peek().indent > indent {
				item, err = p.parseBlock(p.peek().indent)
			} else {
				item = &Node{Kind: Scalar, Line: l.num, Value: nil}
			}
		case keyColon(content) > 0:
			// Inline mapping start: `- key: value`. Re-queue the content at
			// its real column so the mapping parser sees a normal block.
			col := l.indent + (len(l.text) - len(content))
			p.insert(srcLine{indent: col, text: content, num: l.num})
			item, err = p.parseMapping(col)
		default:
			item, err = parseScalar(content, l.num)
		}
		if err != nil {
			return nil, err
		}
		node.Items = append(node.Items, item)
	}
	return node, nil
}

// isSequenceItem reports whether a content line opens a sequence entry.
func isSequenceItem(text string) bool {
	return text == "-" || strings.HasPrefix(text, "- ")
}

// keyColon returns the index of the colon terminating a mapping key, or -1.
// A key colon must be followed by a space or end the line; quoted keys keep
// embedded colons.
func keyColon(text string) int {
	if text == "" {
		return -1
	}
	if text[0] == '"' || text[0] == '\'' {
		end := strings.IndexByte(text[1:], text[0])
		if end < 0 {
			return -1
		}
		rest := text[end+2:]
		if strings.HasPrefix(rest, ":") && (len(rest) == 1 || rest[1] == ' ') {
			return end + 2
		}
		return -1
	}
	for i := 0; i < len(text); i++ {
		if text[i] == ':' && (i == len(text)-1 || text[i+1] == ' ') {
			return i
		}
	}
	return -1
}

// parseScalar interprets one scalar token: quoted or plain strings,
// integers, floats, booleans and null.
func parseScalar(s string, line int) (*Node, error) {
	node := &Node{Kind: Scalar, Line: line}
	if s[0] == '"' || s[0] == '\'' {
		if len(s) < 2 || s[len(s)-1] != s[0] {
			return nil, syntaxErrf(line, "unterminated quoted string")
		}
		node.Value = s[1 : len(s)-1]
		return node, nil
	}
	switch s {
	case "null", "~":
		node.Value = nil
		return node, nil
	case "true":
		node.Value = true
		return node, nil
	case "false":
		node.Value = false
		return node, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		node.Value = i
		return node, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		node.Value = f
		return node, nil
	}
	node.Value = s
	return node, nil
}
