// Package project holds the mutable project configuration that build
// actions accumulate and downstream build steps consume.
//
// The configuration is a set of named lists (for example "cmake_args").
// Actions append to them; the build step that runs the generator reads the
// final lists from the saved project file.
package project
