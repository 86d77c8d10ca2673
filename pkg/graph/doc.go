// Package graph defines the expression graph for implicit surfaces.
// A Context is an arena of hash-consed nodes; a Shape is a root node
// in that arena whose value is negative inside the surface, positive
// outside and zero on the boundary.
package graph
