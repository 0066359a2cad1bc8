package selector

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

const exitSuffix = ":exit"

var compiled sync.Map // string -> []*Selector

// Compile is Parse with a process-wide cache. Selector strings are constants
// in rule code, so each one is parsed once no matter how many passes or
// files use it.
func Compile(src string) ([]*Selector, error) {
	if v, ok := compiled.Load(src); ok {
		return v.([]*Selector), nil
	}
	sels, err := Parse(src)
	if err != nil {
		return nil, err
	}
	compiled.Store(src, sels)
	return sels, nil
}

// Parse compiles a selector string into its comma separated alternatives.
func Parse(src string) ([]*Selector, error) {
	alts, err := splitAlternatives(src)
	if err != nil {
		return nil, err
	}
	out := make([]*Selector, 0, len(alts))
	for _, alt := range alts {
		sel, err := parseAlternative(alt)
		if err != nil {
			return nil, fmt.Errorf("invalid selector %q: %w", src, err)
		}
		out = append(out, sel)
	}
	return out, nil
}

func splitAlternatives(src string) ([]string, error) {
	var (
		alts  []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case depth > 0 && (c == '"' || c == '\'' || c == '/'):
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
		case c == ',' && depth == 0:
			alts = append(alts, src[start:i])
			start = i + 1
		}
	}
	if quote != 0 || depth != 0 {
		return nil, fmt.Errorf("invalid selector %q: unterminated attribute", src)
	}
	alts = append(alts, src[start:])
	for i, a := range alts {
		alts[i] = strings.TrimSpace(a)
		if alts[i] == "" {
			return nil, fmt.Errorf("invalid selector %q: empty alternative", src)
		}
	}
	return alts, nil
}

type scanner struct {
	src string
	pos int
}

func parseAlternative(alt string) (*Selector, error) {
	sel := &Selector{raw: alt}
	body := alt
	if strings.HasSuffix(body, exitSuffix) {
		sel.exit = true
		body = strings.TrimSpace(strings.TrimSuffix(body, exitSuffix))
	}

	s := &scanner{src: body}
	for {
		spaced := s.skipSpaces()
		if s.eof() {
			break
		}
		if len(sel.parts) > 0 {
			switch {
			case s.peek() == '>':
				s.pos++
				s.skipSpaces()
				sel.combs = append(sel.combs, child)
			case spaced:
				sel.combs = append(sel.combs, descendant)
			default:
				return nil, s.errorf("expected combinator")
			}
		}
		c, err := s.compound()
		if err != nil {
			return nil, err
		}
		sel.parts = append(sel.parts, c)
	}
	if len(sel.parts) == 0 {
		return nil, s.errorf("empty selector")
	}
	return sel, nil
}

func (s *scanner) eof() bool  { return s.pos >= len(s.src) }
func (s *scanner) peek() byte { return s.src[s.pos] }

func (s *scanner) skipSpaces() bool {
	start := s.pos
	for !s.eof() && (s.peek() == ' ' || s.peek() == '\t' || s.peek() == '\n') {
		s.pos++
	}
	return s.pos > start
}

func (s *scanner) errorf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", s.pos, fmt.Sprintf(format, args...))
}

func (s *scanner) ident() string {
	start := s.pos
	for !s.eof() {
		c := s.peek()
		if c == '_' || c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9' && s.pos > start) {
			s.pos++
			continue
		}
		break
	}
	return s.src[start:s.pos]
}

func (s *scanner) compound() (compound, error) {
	var c compound
	switch {
	case s.eof():
		return c, s.errorf("expected node kind")
	case s.peek() == '*':
		s.pos++
	case s.peek() == '[':
	default:
		c.kind = s.ident()
		if c.kind == "" {
			return c, s.errorf("unexpected %q", s.peek())
		}
	}
	for !s.eof() && s.peek() == '[' {
		a, err := s.attribute()
		if err != nil {
			return c, err
		}
		c.attrs = append(c.attrs, a)
	}
	if !s.eof() && s.peek() == ':' {
		return c, s.errorf("unsupported pseudo selector %q", s.src[s.pos:])
	}
	return c, nil
}

func (s *scanner) attribute() (attribute, error) {
	var a attribute
	s.pos++ // [
	s.skipSpaces()
	a.name = s.ident()
	if a.name == "" {
		return a, s.errorf("expected attribute name")
	}
	s.skipSpaces()
	if s.eof() {
		return a, s.errorf("unterminated attribute")
	}

	switch {
	case s.peek() == ']':
		s.pos++
		return a, nil
	case strings.HasPrefix(s.src[s.pos:], "!="):
		a.op = opNotEqual
		s.pos += 2
	case s.peek() == '=':
		a.op = opEqual
		s.pos++
	default:
		return a, s.errorf("expected '=', '!=' or ']'")
	}
	s.skipSpaces()
	if s.eof() {
		return a, s.errorf("expected attribute value")
	}

	switch q := s.peek(); q {
	case '"', '\'':
		v, err := s.delimited(q)
		if err != nil {
			return a, err
		}
		a.value = v
	case '/':
		if a.op == opNotEqual {
			return a, s.errorf("regular expressions only support '='")
		}
		pattern, err := s.delimited('/')
		if err != nil {
			return a, err
		}
		if !s.eof() && s.peek() == 'i' {
			pattern = "(?i)" + pattern
			s.pos++
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return a, s.errorf("bad regular expression: %v", err)
		}
		a.op, a.re = opRegex, re
	default:
		start := s.pos
		for !s.eof() && s.peek() != ']' {
			s.pos++
		}
		a.value = strings.TrimSpace(s.src[start:s.pos])
	}

	s.skipSpaces()
	if s.eof() || s.peek() != ']' {
		return a, s.errorf("expected ']'")
	}
	s.pos++
	return a, nil
}

// delimited reads a value between two q characters. A backslash escapes the
// delimiter; other escapes are kept verbatim.
func (s *scanner) delimited(q byte) (string, error) {
	s.pos++
	var b strings.Builder
	for !s.eof() {
		c := s.peek()
		switch {
		case c == '\\' && s.pos+1 < len(s.src) && s.src[s.pos+1] == q:
			b.WriteByte(q)
			s.pos += 2
		case c == q:
			s.pos++
			return b.String(), nil
		default:
			b.WriteByte(c)
			s.pos++
		}
	}
	return "", s.errorf("unterminated value")
}
