package main

import "github.com/sharptier/cms/cmd"

func main() {
	cmd.Execute()
}
