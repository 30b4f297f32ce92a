package main

import (
	"os"

	promptsmithcmder "github.com/papercomputeco/promptsmith/cmd/promptsmith"
)

func main() {
	cmd := promptsmithcmder.NewPromptsmithCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
