package tree

import "strings"

// Fold aggregates the subtree rooted at root bottom-up. leaf maps each leaf
// to a value; combine receives a composite and its children's values in
// child order. Fold keeps its own stack, so deep trees do not grow the call
// stack. A nil root yields the zero value.
func Fold[T any](root Element, leaf func(*Leaf) T, combine func(*Composite, []T) T) T {
	var zero T
	switch r := root.(type) {
	case nil:
		return zero
	case *Leaf:
		if r == nil {
			return zero
		}
		return leaf(r)
	}

	rc, ok := root.(*Composite)
	if !ok || rc == nil {
		return zero
	}

	type frame struct {
		c    *Composite
		next int
		acc  []T
	}

	stack := []*frame{{c: rc, acc: make([]T, 0, len(rc.children))}}
	for {
		top := stack[len(stack)-1]
		if top.next < len(top.c.children) {
			child := top.c.children[top.next]
			top.next++
			switch ch := child.(type) {
			case *Leaf:
				top.acc = append(top.acc, leaf(ch))
			case *Composite:
				stack = append(stack, &frame{c: ch, acc: make([]T, 0, len(ch.children))})
			}
			continue
		}

		value := combine(top.c, top.acc)
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return value
		}
		parent := stack[len(stack)-1]
		parent.acc = append(parent.acc, value)
	}
}

// Concat returns the concatenation of leaf glyphs in child order, the value
// of Operation. It equals Fold with strings.Join as combine but writes into
// a single buffer instead of joining per level.
func Concat(root Element) string {
	var b strings.Builder
	_ = Walk(root, PreOrder, func(e Element, _ int) error {
		if l, ok := e.(*Leaf); ok {
			b.WriteString(l.kind.Glyph())
		}
		return nil
	})
	return b.String()
}

// Sum adds value(l) over every leaf of the subtree.
func Sum(root Element, value func(*Leaf) int) int {
	return Fold(root, value, func(_ *Composite, parts []int) int {
		total := 0
		for _, p := range parts {
			total += p
		}
		return total
	})
}

// Weight sums the kind weights of every leaf of the subtree.
func Weight(root Element) int {
	return Sum(root, func(l *Leaf) int { return l.kind.Weight() })
}
