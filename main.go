package main

import "github.com/KaramelBytes/csvscope-cli/cmd"

func main() {
	cmd.Execute()
}
