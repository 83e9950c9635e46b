package main

import "go.minekube.com/limbo/pkg/cmd/limbo"

func main() {
	limbo.Execute()
}
