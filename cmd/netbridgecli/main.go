package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/veesix-networks/netbridge/pkg/version"
)

var (
	serverAddr = flag.String("server", "http://127.0.0.1:8080", "netbridged API address")
	format     = flag.String("format", string(FormatCLI), "Output format (cli, json, yaml)")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.Full())
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	client := NewClient(*serverAddr)
	cli := NewCLI(client, *serverAddr, OutputFormat(*format))

	if flag.NArg() > 0 {
		if err := cli.Exec(flag.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cli.Stop()
		os.Exit(0)
	}()

	if err := cli.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
