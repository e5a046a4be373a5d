package tree

import (
	stderrors "errors"

	"github.com/conneroisu/canopy/internal/errors"
)

// Order selects when a composite is reported relative to its children.
type Order int

const (
	// PreOrder reports a composite before its children.
	PreOrder Order = iota
	// PostOrder reports a composite after its children.
	PostOrder
)

// String returns "pre" or "post".
func (o Order) String() string {
	switch o {
	case PreOrder:
		return "pre"
	case PostOrder:
		return "post"
	default:
		return "unknown"
	}
}

// ParseOrder parses "pre" or "post".
func ParseOrder(s string) (Order, error) {
	switch s {
	case "pre", "preorder", "pre-order":
		return PreOrder, nil
	case "post", "postorder", "post-order":
		return PostOrder, nil
	default:
		return PreOrder, errors.NewConfigError("unknown traversal order " + s).WithContext("order", s)
	}
}

// SkipChildren may be returned by a pre-order WalkFunc to skip the children
// of the current composite. It is ignored in post-order walks.
var SkipChildren = stderrors.New("skip children")

// WalkFunc is called for every element with its depth below the root.
type WalkFunc func(e Element, depth int) error

// Walk visits every element of the subtree exactly once in the given order.
// It keeps an explicit stack, so recursion depth does not bound tree depth.
// The first error other than SkipChildren stops the walk and is returned.
func Walk(root Element, order Order, fn WalkFunc) error {
	if root == nil || root.isNil() {
		return errors.NewNullArgument("walk", errors.CodeNilChild, "root")
	}
	if fn == nil {
		return errors.NewNullArgument("walk", errors.CodeNilVisitor, "walk function")
	}
	if order == PostOrder {
		return walkPost(root, fn)
	}
	return walkPre(root, fn)
}

func walkPre(root Element, fn WalkFunc) error {
	type item struct {
		e     Element
		depth int
	}
	stack := []item{{e: root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		err := fn(it.e, it.depth)
		if err == SkipChildren {
			continue
		}
		if err != nil {
			return err
		}

		c, ok := it.e.(*Composite)
		if !ok {
			continue
		}
		for i := len(c.children) - 1; i >= 0; i-- {
			stack = append(stack, item{e: c.children[i], depth: it.depth + 1})
		}
	}
	return nil
}

func walkPost(root Element, fn WalkFunc) error {
	c, ok := root.(*Composite)
	if !ok {
		return ignoreSkip(fn(root, 0))
	}

	type frame struct {
		c    *Composite
		next int
	}
	stack := []*frame{{c: c}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		depth := len(stack) - 1
		if top.next < len(top.c.children) {
			child := top.c.children[top.next]
			top.next++
			if sub, ok := child.(*Composite); ok {
				stack = append(stack, &frame{c: sub})
				continue
			}
			if err := ignoreSkip(fn(child, depth+1)); err != nil {
				return err
			}
			continue
		}
		stack = stack[:len(stack)-1]
		if err := ignoreSkip(fn(top.c, depth)); err != nil {
			return err
		}
	}
	return nil
}

func ignoreSkip(err error) error {
	if err == SkipChildren {
		return nil
	}
	return err
}
