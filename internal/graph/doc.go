// Package graph draws the navigation map of compiled records as a
// Graphviz description.
//
// Nodes are salts and tokens. Exercises fan out to the tokens they
// produce, episodes point to the episodes their tokens lead to, and hints
// dangle from the task they belong to. The description is rewritten only
// when it changes, and rendered to pdf/svg when Graphviz is installed.
package graph
