package main

import "github.com/armtools/wchar-tag-helper/internal/cmd"

func main() {
	cmd.Execute()
}
