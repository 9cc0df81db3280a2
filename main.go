package main

import "github.com/insightdelivered/statement-importer/cmd"

func main() {
	cmd.Execute()
}
