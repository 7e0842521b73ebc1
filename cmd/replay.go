// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/julianpas/poark.rosserial/pkg/rosserial"
)

var replayValidate bool

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Inspect a capture file offline",
	Long: `Print every frame of a capture file in human-readable format.

With --validate, each frame is also checked against the reserved-topic
payload shapes and anomalies are flagged.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayValidate, "validate", false, "Flag anomalous frames")
}

func runReplay(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer in.Close()

	reader := rosserial.NewCaptureReader(in)
	count := 0
	anomalies := 0

	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("capture record %d unreadable: %w", count+1, err)
		}

		dir := "rx"
		if rec.Direction == rosserial.CaptureTx {
			dir = "tx"
		}
		frame := rec.Frame()
		fmt.Printf("%8dms %s %s", rec.OffsetMillis, dir, rosserial.FormatFrame(frame))

		if replayValidate {
			for _, verr := range rosserial.ValidateFrame(frame) {
				anomalies++
				fmt.Printf("  !! %s\n", verr.Message)
			}
		}
		count++
	}

	fmt.Printf("\n%d frames", count)
	if replayValidate {
		fmt.Printf(", %d anomalies", anomalies)
	}
	fmt.Println()
	return nil
}
