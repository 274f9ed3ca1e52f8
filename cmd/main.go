// Copyright (c) 2024, 0x0BSoD. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "newspipeline",
		Short:         "Collects, summarizes, tags and publishes financial news",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		serveCmd(),
		runCmd(),
		migrateCmd(),
		feedsCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
