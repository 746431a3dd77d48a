package main

import "github.com/rand/adapt/internal/cmd"

func main() {
	cmd.Execute()
}
