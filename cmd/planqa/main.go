// Package main provides the entry point for the planqa CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/Aman-CERP/planqa/cmd/planqa/cmd"
	planerrors "github.com/Aman-CERP/planqa/internal/errors"
)

func main() {
	// A missing .env is normal; PLANQA_* variables may come from the shell.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, planerrors.FormatForCLI(err))
		os.Exit(1)
	}
}
