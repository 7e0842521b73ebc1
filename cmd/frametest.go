// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/julianpas/poark.rosserial/pkg/rosserial"
)

var (
	frameTestTimeout int
)

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test connection by waiting for a valid rosserial frame",
	Long: `Wait for a valid rosserial frame on the connection until timeout.

This command connects to the device and waits for any complete frame that
passes the checksum. It ignores invalid bytes while hunting for sync. A
negotiation request is sent first so a freshly-attached device has a
reason to talk.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for verifying wiring and baud rate against a device.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("rosserial-bridge - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for valid rosserial frame...\n\n")

	// Provoke a response from a quiet device.
	if negotiate, err := rosserial.Encode(rosserial.TopicNegotiation, nil); err == nil {
		conn.Write(negotiate)
	}

	decoder := rosserial.NewDecoder(nil)
	buf := make([]byte, 512)

	// Channel for frame reception
	frameChan := make(chan *rosserial.Frame, 1)
	errChan := make(chan error, 1)

	// Reader goroutine
	go func() {
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			for i := 0; i < n; i++ {
				if frame := decoder.DecodeByte(buf[i]); frame != nil {
					if errs := decoder.Stats().ErrorCount(); errs > 0 {
						fmt.Printf("(skipped past %d decode errors before sync)\n", errs)
					}
					frameChan <- frame.Clone()
					return
				}
			}
		}
	}()

	// Wait for frame or timeout
	select {
	case frame := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Topic: %s (id=%d)\n", rosserial.FormatTopicID(frame.TopicID()), frame.TopicID())
		fmt.Printf("  Length: %d bytes\n", len(frame.Payload()))
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(frameTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", frameTestTimeout)
		os.Exit(1)
	}

	return nil
}
