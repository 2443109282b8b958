package main

import "github.com/seedkeeper/seedkeeper/cmd"

func main() {
	cmd.Execute()
}
