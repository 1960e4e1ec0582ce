package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/MrSnakeDoc/quickmark/internal/cli"
	"github.com/MrSnakeDoc/quickmark/internal/domain"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("❌"), domain.UserMessage(err))
		os.Exit(1)
	}
}
