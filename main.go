package main

import "github.com/lockboxlabs/lplocker/cmd"

func main() {
	cmd.Execute()
}
