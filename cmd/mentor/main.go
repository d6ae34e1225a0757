// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command mentor runs the session orchestration engine.
//
// Usage:
//
//	mentor serve --config config.yaml
//	mentor version
//
// With a local Ollama backend:
//
//	MENTOR_LLM_ENDPOINT=http://localhost:11434 mentor serve
//
// Example requests:
//
//	curl http://localhost:8085/health
//
//	curl -X POST http://localhost:8085/v1/sessions \
//	  -H "Content-Type: application/json" \
//	  -d '{"participant_id": "p001", "condition": "MENTOR"}'
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mentor",
		Short: "Session orchestration engine for design mentoring studies",
		Long: "mentor runs controlled design-mentoring sessions under three\n" +
			"experimental conditions, extracts design moves into a linkograph,\n" +
			"and scores cognitive engagement per turn.",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}
