package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Leganyst/table-booking/internal/cli"
	"github.com/Leganyst/table-booking/internal/config"
)

func main() {
	config.LoadDotEnv()

	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
