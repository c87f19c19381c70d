// Command portfolio is a terminal client for the portfolio service. It keeps a live
// snapshot of the user's holdings, refreshes prices in the background and talks to
// the investment advisor.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
