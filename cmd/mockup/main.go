// Command mockup lists styles, prints instruction documents and renders
// logo mockups from the command line.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newApp().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var ec *exitError
		if errors.As(err, &ec) {
			os.Exit(ec.code)
		}
		os.Exit(1)
	}
}
