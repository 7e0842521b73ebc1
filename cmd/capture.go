// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/julianpas/poark.rosserial/pkg/rosserial"
)

var (
	captureOutput string
	captureLimit  int
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record inbound frames to a capture file",
	Long: `Record every valid inbound frame to a CBOR capture file.

Each record carries the millisecond offset from the start of the capture,
the topic ID, and the payload. Use the replay command to inspect a capture
offline.

Recording stops at --limit frames, or on Ctrl+C.`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", "rosserial.capture", "Capture file path")
	captureCmd.Flags().IntVar(&captureLimit, "limit", 0, "Stop after this many frames (0 = unlimited)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	out, err := os.Create(captureOutput)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	defer out.Close()

	fmt.Printf("rosserial-bridge - Frame Capture\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Writing to: %s\n", captureOutput)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	type captured struct {
		offset uint64
		frame  *rosserial.Frame
	}
	frames := make(chan captured, 64)

	start := time.Now()
	go func() {
		defer close(frames)
		decoder := rosserial.NewDecoder(nil)
		buf := make([]byte, 512)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			for i := 0; i < n; i++ {
				if frame := decoder.DecodeByte(buf[i]); frame != nil {
					frames <- captured{
						offset: uint64(time.Since(start) / time.Millisecond),
						frame:  frame.Clone(),
					}
				}
			}
		}
	}()

	writer := rosserial.NewCaptureWriter(out)
	count := 0

	for {
		select {
		case <-sigCh:
			fmt.Printf("\nCaptured %d frames\n", count)
			return nil
		case c, open := <-frames:
			if !open {
				fmt.Printf("\nConnection closed; captured %d frames\n", count)
				return nil
			}
			if err := writer.Record(c.offset, rosserial.CaptureRx, c.frame); err != nil {
				return err
			}
			count++
			if captureLimit > 0 && count >= captureLimit {
				fmt.Printf("\nCaptured %d frames\n", count)
				return nil
			}
		}
	}
}
