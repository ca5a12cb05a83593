//go:build tools
// +build tools

// Package tools tracks the tool dependencies invoked by go generate.
package board_lab

import (
	_ "go.uber.org/mock/mockgen"
)
