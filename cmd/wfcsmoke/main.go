// Command wfcsmoke runs smoke scenarios against a running wfcserve.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lawnchairsociety/wavetiles/internal/testclient"
)

func main() {
	serverAddr := flag.String("addr", "localhost:4000", "wfcserve TCP address")
	timeout := flag.Duration("timeout", 10*time.Second, "Timeout for each read and write")
	flag.Parse()

	testclient.Timeout = *timeout

	fmt.Printf("Running scenarios against %s\n\n", *serverAddr)
	results := testclient.RunAllTests(*serverAddr)
	testclient.PrintResults(os.Stdout, results)

	for _, result := range results {
		if !result.Passed {
			os.Exit(1)
		}
	}
}
