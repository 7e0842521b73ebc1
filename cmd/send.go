// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/julianpas/poark.rosserial/pkg/rosserial"
)

var (
	sendTopicID uint16
	sendHex     string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Encode and transmit a single frame",
	Long: `Encode one frame from a hex payload and write it to the connection.

Debug aid for poking a device by hand:

  rosserial-bridge send --topic 0                 # negotiation request
  rosserial-bridge send --topic 125 --payload 48692100`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().Uint16Var(&sendTopicID, "topic", 0, "Wire topic ID")
	sendCmd.Flags().StringVar(&sendHex, "payload", "", "Payload as hex bytes")
}

func runSend(cmd *cobra.Command, args []string) error {
	payload, err := hex.DecodeString(strings.ReplaceAll(sendHex, " ", ""))
	if err != nil {
		return fmt.Errorf("invalid hex payload: %w", err)
	}

	frame, err := rosserial.Encode(sendTopicID, payload)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	fmt.Printf("Sent %d bytes to %s (topic %d, %d-byte payload)\n",
		len(frame), connInfo, sendTopicID, len(payload))
	return nil
}
