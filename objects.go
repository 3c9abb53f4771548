// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import "sync"

// An ObjectTable is an in-memory XRef. It is safe for concurrent use.
type ObjectTable struct {
	mu      sync.RWMutex
	objects map[Ref]object
	next    uint32
}

// NewObjectTable returns an empty table.
func NewObjectTable() *ObjectTable {
	return &ObjectTable{objects: make(map[Ref]object), next: 1}
}

// Set stores v as the indirect object ref, replacing any previous value.
func (t *ObjectTable) Set(ref Ref, v Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.objects[ref] = v.data
	if ref.Num >= t.next {
		t.next = ref.Num + 1
	}
}

// Add stores v under the next free object number and returns a reference to it.
func (t *ObjectTable) Add(v Value) Value {
	t.mu.Lock()
	ref := Ref{Num: t.next}
	t.next++
	t.objects[ref] = v.data
	t.mu.Unlock()
	return Value{data: ref}
}

// Fetch implements XRef.
func (t *ObjectTable) Fetch(ref Ref) Value {
	t.mu.RLock()
	x, ok := t.objects[ref]
	t.mu.RUnlock()
	if !ok {
		return Value{}
	}
	if s, ok := x.(stream); ok {
		s.ptr = ref
		x = s
	}
	return Value{t, ref, x}
}

// Bind returns v attached to t, so that Key and Index resolve
// references through t.
func (t *ObjectTable) Bind(v Value) Value {
	return Value{t, v.ptr, v.data}
}

// Len returns the number of objects in t.
func (t *ObjectTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.objects)
}
