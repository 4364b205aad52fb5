// An example extra builtin. Build with -buildmode=plugin and list the .so in
// the plugins section of ~/.minishell.yml.
package main

import (
	"fmt"
)

type GreetPlugin struct{}

func (p *GreetPlugin) Name() string {
	return "greet"
}

func (p *GreetPlugin) Execute(args []string) error {
	fmt.Println("hello from the greet plugin:", args)
	return nil
}

var Plugin GreetPlugin

func main() {}

