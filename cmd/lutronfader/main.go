package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lutronfader",
	Short: "Lutron hub fade control CLI",
	Long: `A command line interface for fading Lutron Caseta Pro and RadioRA2 zones
over the hub's telnet Integration Protocol, including fades far longer than
the vendor apps allow.`,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1)
	}
}
