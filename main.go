package main

import "github.com/nextlevelbuilder/dentassist/cmd"

func main() {
	cmd.Execute()
}
