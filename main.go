package main

import "github.com/Deadly1ne/ChapBuddy/cmd"

func main() {
	cmd.Execute()
}
