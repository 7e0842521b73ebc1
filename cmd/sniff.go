// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/julianpas/poark.rosserial/pkg/rosserial"
)

var sniffShowErrors bool

var sniffCmd = &cobra.Command{
	Use:   "sniff",
	Short: "Display decoded frames in human-readable format",
	Long: `Continuously decode and display rosserial frames as they arrive.

Each frame is shown with timestamp, topic, and decoded payload for the
reserved system topics (negotiation, time, log, parameter). User topic
payloads are hex-dumped.

Supports serial, TCP, and WebSocket connections.`,
	RunE: runSniff,
}

func init() {
	rootCmd.AddCommand(sniffCmd)
	sniffCmd.Flags().BoolVar(&sniffShowErrors, "show-errors", false, "Report decoder error counters on every change")
}

func runSniff(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("rosserial-bridge - Frame Sniffer\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := rosserial.NewDecoder(nil)
	buf := make([]byte, 512)
	lastErrors := uint64(0)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if err == ErrConnectionClosed {
				log.Printf("Connection closed")
				return nil
			}
			log.Printf("Read error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			if frame := decoder.DecodeByte(buf[i]); frame != nil {
				fmt.Print(rosserial.FormatFrame(frame))
				for _, verr := range rosserial.ValidateFrame(frame) {
					fmt.Printf("  !! %s\n", verr.Message)
				}
			}
			if sniffShowErrors {
				if errs := decoder.Stats().ErrorCount(); errs != lastErrors {
					lastErrors = errs
					fmt.Printf("[decoder errors: %d]\n", errs)
				}
			}
		}
	}
}
