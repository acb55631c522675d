//go:build mage

// Package main provides build targets for the librarian project using Mage.
//
// Usage:
//
//	mage build          Compile the librarian binary to bin/
//	mage test:all       Run all tests
//	mage test:race      Run all tests with the race detector
//	mage test:cover     Run all tests and write coverage.out
//	mage test:smoke     Build, then run init and toc check in a scratch dir
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install librarian to GOPATH/bin
//	mage stats          Print Go LOC and documentation word counts
package main

const (
	binGo      = "go"
	binaryName = "librarian"
	binaryDir  = "bin"
	cmdDir     = "./cmd/librarian"
)
