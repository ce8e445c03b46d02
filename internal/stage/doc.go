// Package stage defines the contract shared by the four content steps: the
// Job they operate on, the Handler interface, health records and small
// artifact precondition helpers.
package stage
