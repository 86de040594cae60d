// Package main is the entry point for the tracker CLI.
package main

import "github.com/kalverra/tracker-client/cmd"

func main() {
	cmd.Execute()
}
