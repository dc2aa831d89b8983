// Package commenttree rebuilds flat, parent-referencing comment lists into
// nested reply trees.
package commenttree

import (
	"kavyalok/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Node is a comment together with its direct replies, in input order.
type Node struct {
	models.Comment
	Replies []*Node `json:"replies"`
}

// Build turns comments into a forest of reply trees.
//
// Comments without a parent become roots. A comment whose parent is not part
// of comments (deleted parent, or a parent on another post) is dropped. A
// comment naming itself as parent is dropped the same way, and members of a
// longer parent cycle never become reachable from a root, so the returned
// forest is always acyclic. Roots and every Replies slice keep the relative
// order of comments. The input slice is not modified.
func Build(comments []models.Comment) []*Node {
	index := make(map[primitive.ObjectID]*Node, len(comments))
	nodes := make([]*Node, len(comments))
	for i := range comments {
		n := &Node{Comment: comments[i], Replies: []*Node{}}
		nodes[i] = n
		index[n.ID] = n
	}

	roots := []*Node{}
	for _, n := range nodes {
		if n.ParentComment == nil {
			roots = append(roots, n)
			continue
		}
		if *n.ParentComment == n.ID {
			continue
		}
		parent, ok := index[*n.ParentComment]
		if !ok {
			continue
		}
		parent.Replies = append(parent.Replies, n)
	}
	return roots
}

// Insert places c into an already built forest without rebuilding it. Root
// comments are appended to the forest; replies are appended to their parent,
// found by a depth-first search. It reports false, leaving roots unchanged,
// when the parent is not in the forest.
func Insert(roots []*Node, c models.Comment) ([]*Node, bool) {
	n := &Node{Comment: c, Replies: []*Node{}}
	if c.ParentComment == nil {
		return append(roots, n), true
	}
	parent := Find(roots, *c.ParentComment)
	if parent == nil || parent.ID == c.ID {
		return roots, false
	}
	parent.Replies = append(parent.Replies, n)
	return roots, true
}

// Find returns the node with the given id, or nil.
func Find(roots []*Node, id primitive.ObjectID) *Node {
	for _, n := range roots {
		if n.ID == id {
			return n
		}
		if found := Find(n.Replies, id); found != nil {
			return found
		}
	}
	return nil
}

// Flatten returns the comments of the forest in pre-order.
func Flatten(roots []*Node) []models.Comment {
	out := []models.Comment{}
	var walk func([]*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out = append(out, n.Comment)
			walk(n.Replies)
		}
	}
	walk(roots)
	return out
}

// Count returns the number of nodes in the forest.
func Count(roots []*Node) int {
	total := 0
	for _, n := range roots {
		total += 1 + Count(n.Replies)
	}
	return total
}
