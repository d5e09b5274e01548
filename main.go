// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/gnvdata/canvass/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
