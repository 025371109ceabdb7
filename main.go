package main

import "github.com/edulog/edulog/cmd"

func main() {
	cmd.Execute()
}
