// Package catalog is the built-in demo application: an embedded route
// table, the views it names, and the guards and resolvers it references.
//
// The waypoint command uses it when no route file is configured, and the
// package tests use it as a realistic table.
package catalog
