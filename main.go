// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/cppx/cppx/cmd/cppx"

func main() {
	cmd.Execute()
}
