// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// rosserial-bridge - rosserial host endpoint
//
// A CLI tool for bridging rosserial-linked microcontrollers to the
// middleware, with frame-level diagnostics.

package main

import (
	"os"

	"github.com/julianpas/poark.rosserial/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
