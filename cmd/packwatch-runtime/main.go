package main

import "github.com/oshokin/packwatch/cmd/packwatch-runtime/cmd"

func main() {
	cmd.Execute()
}
