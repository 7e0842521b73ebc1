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
	pingCount    int
	pingInterval int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure time-sync round trips to the device",
	Long: `Send time-sync requests and measure the round-trip time.

Each ping sends a zeroed time message on the time topic; the device replies with
its current clock. The reported remote time includes the half-round-trip
correction the bridge applies during normal operation.

Exit codes:
  0 - All pings answered
  1 - One or more pings timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingCount, "count", 4, "Number of pings to send")
	pingCmd.Flags().IntVar(&pingInterval, "interval", 1000, "Interval between pings (ms)")
}

func runPing(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("rosserial-bridge - Time Sync Ping\n")
	fmt.Printf("Connection: %s\n\n", connInfo)

	request, err := rosserial.Encode(rosserial.TopicIDTime, make([]byte, 8))
	if err != nil {
		return err
	}

	// One reader goroutine for the whole run; replies arrive on a channel
	// so late answers from a timed-out ping don't confuse the next one.
	replies := make(chan rosserial.TimeMsg, 8)
	go func() {
		defer close(replies)
		decoder := rosserial.NewDecoder(nil)
		buf := make([]byte, 512)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			for i := 0; i < n; i++ {
				frame := decoder.DecodeByte(buf[i])
				if frame == nil || frame.TopicID() != rosserial.TopicIDTime {
					continue
				}
				var msg rosserial.TimeMsg
				if msg.Deserialize(frame.Payload()) == nil {
					replies <- msg
				}
			}
		}
	}()

	lost := 0
	for i := 0; i < pingCount; i++ {
		// Drain any stale reply from a previous timeout.
		select {
		case <-replies:
		default:
		}

		start := time.Now()
		if _, err := conn.Write(request); err != nil {
			fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
			os.Exit(2)
		}

		select {
		case reply, open := <-replies:
			if !open {
				fmt.Fprintf(os.Stderr, "Connection closed\n")
				os.Exit(2)
			}
			rtt := time.Since(start)
			adjusted := reply.AddMillis(uint64(rtt.Milliseconds()) / 2)
			fmt.Printf("ping %d: rtt=%.1fms remote=%d.%09d\n",
				i+1, float64(rtt.Microseconds())/1000.0, adjusted.Sec, adjusted.Nsec)
		case <-time.After(2 * time.Second):
			lost++
			fmt.Printf("ping %d: timeout\n", i+1)
		}

		if i+1 < pingCount {
			time.Sleep(time.Duration(pingInterval) * time.Millisecond)
		}
	}

	if lost > 0 {
		fmt.Printf("\n%d of %d pings lost\n", lost, pingCount)
		os.Exit(1)
	}
	return nil
}
