// Package visitor provides the stock operations over canopy trees.
//
// Every type here implements tree.Visitor. Deep visitors drive their own
// recursion by calling tree.VisitChildren from VisitComposite; ChildLister is
// the one shallow visitor and only looks at the composite it is handed.
// Visitors accumulate state and are not safe for concurrent use. Create one
// per traversal, or call Reset between traversals where available.
//
// Visitor-driven recursion uses the goroutine stack. For trees whose depth
// runs into the hundreds of thousands prefer tree.Walk or tree.Fold, which
// keep an explicit stack.
package visitor
