package main

import "github.com/oshokin/packwatch/cmd/packwatch-checker/cmd"

func main() {
	cmd.Execute()
}
