// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// TCP connection flags
	tcpAddr string

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	verbose bool

	logger = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "rosserial-bridge",
	Short: "rosserial host bridge",
	Long: `rosserial-bridge - Host endpoint for rosserial-linked microcontrollers.

Terminates the rosserial framed protocol over a byte link, negotiates
topics with the device, keeps its clock synchronized, and bridges topic
traffic to the middleware. Also provides frame-level diagnostics: live
sniffing, statistics monitoring, and capture/replay.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 57600]
  TCP:       --tcp host:port
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the
ROSSERIAL_PASSWORD environment variable, or prompted interactively if not
set. The --password flag is intentionally not provided to avoid leaking
credentials in shell history.`,
	Version: "1.0.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 57600, "Baud rate (serial only)")

	// TCP connection flags
	rootCmd.PersistentFlags().StringVar(&tcpAddr, "tcp", "", "TCP address (host:port)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
