// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"fmt"
	"io"
	"strings"

	"github.com/sassoftware/viya-pdf-view/logger"
)

// A Stack represents a stack of values.
type Stack struct {
	stack []Value
}

func (stk *Stack) Len() int {
	return len(stk.stack)
}

func (stk *Stack) Push(v Value) {
	stk.stack = append(stk.stack, v)
}

func (stk *Stack) Pop() Value {
	n := len(stk.stack)
	if n == 0 {
		return Value{}
	}
	v := stk.stack[n-1]
	stk.stack[n-1] = Value{}
	stk.stack = stk.stack[:n-1]
	return v
}

// Values returns the operands on the stack, bottom first, and empties it.
func (stk *Stack) Values() []Value {
	out := make([]Value, len(stk.stack))
	copy(out, stk.stack)
	stk.stack = stk.stack[:0]
	return out
}

// Interpret runs the content stream strm, or the concatenation of an array
// of content streams, calling do for every operator. The operator's operands
// are on stk when do is called; whatever do leaves there is discarded.
// Inline images are reported as a "BI" operator whose single operand is the
// image dictionary.
func Interpret(strm Value, do func(stk *Stack, op string)) error {
	return interpret(strm, func(stk *Stack, op string) bool {
		do(stk, op)
		return true
	})
}

func interpret(strm Value, do func(stk *Stack, op string) bool) (err error) {
	rd, err := contentReader(strm)
	if err != nil {
		return err
	}
	defer rd.Close()
	defer recoverSyntax(&err)

	b := newBuffer(rd, 0)
	b.allowEOF = true
	b.allowObjptr = false
	b.allowStream = false

	var stk Stack
	for {
		tok := b.readToken()
		if tok == io.EOF {
			return nil
		}
		kw, ok := tok.(keyword)
		if !ok {
			b.unreadToken(tok)
			stk.Push(Value{strm.r, Ref{}, b.readObject()})
			continue
		}
		switch kw {
		case "null", "[", "<<":
			b.unreadToken(tok)
			stk.Push(Value{strm.r, Ref{}, b.readObject()})
			continue
		case "BI":
			stk.stack = stk.stack[:0]
			stk.Push(Value{strm.r, Ref{}, b.readInlineImage()})
		}
		if !do(&stk, string(kw)) {
			return nil
		}
		stk.stack = stk.stack[:0]
	}
}

// contentReader returns the decoded data of a stream, or of an array of
// streams separated by white space.
func contentReader(v Value) (io.ReadCloser, error) {
	switch v.Kind() {
	case Stream:
		return v.Reader(), nil
	case Array:
		var readers []io.Reader
		var closers multiCloser
		for i := 0; i < v.Len(); i++ {
			s := v.Index(i)
			if s.Kind() != Stream {
				logger.Warn(fmt.Sprintf("content array element %d is %s, not a stream", i, s.Kind()))
				continue
			}
			rc := s.Reader()
			closers = append(closers, rc)
			readers = append(readers, rc, strings.NewReader("\n"))
		}
		return struct {
			io.Reader
			io.Closer
		}{io.MultiReader(readers...), closers}, nil
	}
	return nil, fmt.Errorf("content is %s, not a stream", v.Kind())
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// readInlineImage reads the parameters of an inline image up to ID and
// skips the image data up to EI.
func (b *buffer) readInlineImage() object {
	d := make(dict)
	for {
		tok := b.readToken()
		if tok == keyword("ID") || tok == io.EOF {
			break
		}
		n, ok := tok.(name)
		if !ok {
			b.errorf("unexpected %v in inline image dictionary", tok)
		}
		if obj := b.readObject(); obj != nil {
			d[n] = obj
		}
	}
	// one white-space byte separates ID from the data
	b.readByte()
	prev2, prev1 := byte('x'), byte('x')
	for !b.eof {
		c := b.readByte()
		if isSpace(prev2) && prev1 == 'E' && c == 'I' {
			next := b.readByte()
			b.unreadByte()
			if b.eof || isSpace(next) || isDelim(next) {
				break
			}
		}
		prev2, prev1 = prev1, c
	}
	return d
}

// An OpFunc observes one content operator and its operands.
type OpFunc func(op string, args []Value)

// abortPollInterval is how many operators run between AbortCheck calls.
const abortPollInterval = 64

// ContentGfx is a Gfx that tokenizes content streams and reports every
// operator to an OpFunc. It keeps track of the graphics state nesting and
// of the abort callback, and draws nothing itself.
type ContentGfx struct {
	params  GfxParams
	op      OpFunc
	depth   int
	ops     int
	aborted bool
}

// NewContentGfx returns a ContentGfx for params. op may be nil.
func NewContentGfx(params GfxParams, op OpFunc) *ContentGfx {
	return &ContentGfx{params: params, op: op}
}

// ContentGfxFactory returns a GfxFactory building ContentGfx values that report to op.
func ContentGfxFactory(op OpFunc) GfxFactory {
	return func(params GfxParams) Gfx {
		return NewContentGfx(params, op)
	}
}

func (g *ContentGfx) SaveState() { g.depth++ }

func (g *ContentGfx) RestoreState() {
	if g.depth == 0 {
		logger.Warn("restore without matching save", "page", g.params.PageNum)
		return
	}
	g.depth--
}

// Depth returns the current graphics state nesting.
func (g *ContentGfx) Depth() int { return g.depth }

// Ops returns the number of operators run so far.
func (g *ContentGfx) Ops() int { return g.ops }

// Aborted reports whether AbortCheck stopped the interpreter.
func (g *ContentGfx) Aborted() bool { return g.aborted }

// Params returns the parameters g was built with.
func (g *ContentGfx) Params() GfxParams { return g.params }

func (g *ContentGfx) Display(content Value) error {
	base := g.depth
	err := interpret(content.Fetch(g.params.XRef), g.step)
	// unbalanced q operators do not leak out of a content stream
	g.depth = base
	return err
}

func (g *ContentGfx) step(stk *Stack, op string) bool {
	if g.aborted {
		return false
	}
	g.ops++
	if g.params.AbortCheck != nil && g.ops%abortPollInterval == 0 && g.params.AbortCheck() {
		g.aborted = true
		return false
	}
	switch op {
	case "q":
		g.SaveState()
	case "Q":
		g.RestoreState()
	}
	if g.op != nil {
		g.op(op, stk.Values())
	}
	return true
}

func (g *ContentGfx) DoAnnot(appearance Value, rect Rectangle) {
	if g.op != nil {
		g.op("annot", []Value{NewArray(NewReal(rect.X1), NewReal(rect.Y1), NewReal(rect.X2), NewReal(rect.Y2))})
	}
	if err := g.Display(appearance); err != nil {
		logger.Error(fmt.Sprintf("page %d: annotation appearance: %v", g.params.PageNum, err), "page", g.params.PageNum)
	}
}
