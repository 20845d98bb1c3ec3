// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"os"
)

func main() {
	// We should send our own log output to stderr.
	flag.Set("logtostderr", "true")
	flag.Parse()

	v := newViewerCli()
	v.run(os.Args)
	v.stop()
}
