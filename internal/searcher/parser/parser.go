// Package parser turns search text into a QueryPlan: a list of clauses over
// the title and body fields, each required, optional or prohibited.
//
// Syntax:
//
//	apple banana        either term (default conjunction is OR)
//	apple AND banana    both terms
//	+apple -banana      apple required, banana prohibited
//	NOT banana          banana prohibited
//	title:apple         apple in the title only
//	"green apple"       the phrase, in one field
//
// Operators are upper case; lower-case "and", "or" and "not" are ordinary
// words.
package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/cacherch/pkg/errors"
)

type Occur int

const (
	OccurShould Occur = iota
	OccurMust
	OccurMustNot
)

func (o Occur) String() string {
	switch o {
	case OccurMust:
		return "must"
	case OccurMustNot:
		return "must_not"
	default:
		return "should"
	}
}

// Clause matches a document when any of its fields contains Terms: a single
// term, or with Phrase set, the terms at consecutive positions.
type Clause struct {
	Occur  Occur
	Fields []index.Field
	Terms  []string
	Phrase bool
}

type QueryPlan struct {
	Clauses  []Clause
	RawQuery string
}

// HasPositive reports whether the plan can match anything at all. A plan of
// only prohibited clauses matches nothing.
func (p *QueryPlan) HasPositive() bool {
	for _, c := range p.Clauses {
		if c.Occur != OccurMustNot {
			return true
		}
	}
	return false
}

// Terms returns the distinct terms of the non-prohibited clauses, in order.
func (p *QueryPlan) Terms() []string {
	seen := make(map[string]struct{})
	terms := make([]string, 0)
	for _, c := range p.Clauses {
		if c.Occur == OccurMustNot {
			continue
		}
		for _, t := range c.Terms {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				terms = append(terms, t)
			}
		}
	}
	return terms
}

type tokenKind int

const (
	tokTerm tokenKind = iota
	tokPhrase
	tokAnd
	tokOr
	tokNot
)

type token struct {
	kind   tokenKind
	text   string
	field  string
	prefix byte
	pos    int
}

// Parse builds the plan for query. Malformed syntax yields ErrQueryParse with
// a detail naming the problem and its byte offset.
func Parse(query string) (*QueryPlan, error) {
	plan := &QueryPlan{
		Clauses:  make([]Clause, 0),
		RawQuery: query,
	}
	tokens, err := lex(query)
	if err != nil {
		return nil, err
	}

	// Clauses are built for every operand, including punctuation-only ones left
	// without terms, so that AND binds to the right neighbours.
	clauses := make([]Clause, 0, len(tokens))
	var pending *token
	negate := false
	for i := range tokens {
		tok := tokens[i]
		switch tok.kind {
		case tokAnd, tokOr:
			if len(clauses) == 0 {
				return nil, parseErrorf("query cannot start with %s (position %d)", opName(tok), tok.pos)
			}
			if pending != nil || negate {
				return nil, parseErrorf("unexpected %s after %s (position %d)", opName(tok), precedingOp(pending, negate), tok.pos)
			}
			pending = &tokens[i]
		case tokNot:
			if negate {
				return nil, parseErrorf("unexpected NOT after NOT (position %d)", tok.pos)
			}
			negate = true
		default:
			c, err := buildClause(tok)
			if err != nil {
				return nil, err
			}
			if negate {
				c.Occur = OccurMustNot
				negate = false
			}
			if pending != nil && pending.kind == tokAnd {
				prev := &clauses[len(clauses)-1]
				if prev.Occur == OccurShould {
					prev.Occur = OccurMust
				}
				if c.Occur == OccurShould {
					c.Occur = OccurMust
				}
			}
			pending = nil
			clauses = append(clauses, c)
		}
	}
	if pending != nil {
		return nil, parseErrorf("dangling %s at end of query (position %d)", opName(*pending), pending.pos)
	}
	if negate {
		return nil, parseErrorf("dangling NOT at end of query")
	}

	for _, c := range clauses {
		if len(c.Terms) > 0 {
			plan.Clauses = append(plan.Clauses, c)
		}
	}
	return plan, nil
}

func buildClause(tok token) (Clause, error) {
	c := Clause{Occur: OccurShould, Fields: index.Fields[:]}
	switch tok.prefix {
	case '+':
		c.Occur = OccurMust
	case '-':
		c.Occur = OccurMustNot
	}
	if tok.field != "" {
		field, ok := index.ParseField(tok.field)
		if !ok {
			return Clause{}, parseErrorf("unknown field %q (position %d); searchable fields are title and body", tok.field, tok.pos)
		}
		c.Fields = []index.Field{field}
	}
	c.Terms = tokenizer.Terms(tok.text)
	// A word the tokenizer splits, like "e-mail", is matched as a phrase.
	c.Phrase = len(c.Terms) > 1
	return c, nil
}

func lex(query string) ([]token, error) {
	tokens := make([]token, 0)
	i := 0
	n := len(query)
	for {
		i = skipSpace(query, i)
		if i >= n {
			return tokens, nil
		}
		tok := token{pos: i}

		if query[i] == '+' || query[i] == '-' {
			tok.prefix = query[i]
			i++
			if i >= n || isSpaceAt(query, i) {
				return nil, parseErrorf("dangling %q (position %d)", string(tok.prefix), tok.pos)
			}
		}

		if j := scanFieldName(query, i); j > i && j < n && query[j] == ':' {
			tok.field = query[i:j]
			i = j + 1
			if i >= n || isSpaceAt(query, i) {
				return nil, parseErrorf("empty value for field %q (position %d)", tok.field, tok.pos)
			}
		}

		if query[i] == '"' {
			end := strings.IndexByte(query[i+1:], '"')
			if end < 0 {
				return nil, parseErrorf("unterminated quote (position %d)", i)
			}
			tok.kind = tokPhrase
			tok.text = query[i+1 : i+1+end]
			i += end + 2
			tokens = append(tokens, tok)
			continue
		}

		start := i
		for i < n && !isSpaceAt(query, i) && query[i] != '"' {
			_, size := utf8.DecodeRuneInString(query[i:])
			i += size
		}
		tok.text = query[start:i]
		tok.kind = tokTerm
		if tok.prefix == 0 && tok.field == "" {
			switch tok.text {
			case "AND":
				tok.kind = tokAnd
			case "OR":
				tok.kind = tokOr
			case "NOT":
				tok.kind = tokNot
			}
		}
		tokens = append(tokens, tok)
	}
}

func scanFieldName(s string, i int) int {
	j := i
	for j < len(s) && (s[j] == '_' || (s[j] >= 'a' && s[j] <= 'z') || (s[j] >= 'A' && s[j] <= 'Z')) {
		j++
	}
	return j
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpaceAt(s, i) {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

func isSpaceAt(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsSpace(r)
}

func opName(t token) string {
	switch t.kind {
	case tokAnd:
		return "AND"
	case tokOr:
		return "OR"
	case tokNot:
		return "NOT"
	default:
		return t.text
	}
}

func precedingOp(pending *token, negate bool) string {
	if negate {
		return "NOT"
	}
	return opName(*pending)
}

func parseErrorf(format string, args ...any) error {
	return apperrors.New(apperrors.ErrQueryParse, fmt.Sprintf(format, args...))
}
