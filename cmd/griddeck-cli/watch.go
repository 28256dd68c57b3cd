package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/muesli/coral"

	"github.com/griddeck/griddeck"
)

var (
	watchCmd = &coral.Command{
		Use:   "watch",
		Short: "watch the transport, printing deck attach and detach events",
		RunE: func(cmd *coral.Command, args []string) error {
			mon := griddeck.NewMonitor(mgr, griddeck.WithMonitorLogger(log))

			err := mon.Start(
				func(dev *griddeck.Device) {
					info := dev.Info()
					fmt.Printf("Attached: %s, serial %s (%s)\n", dev.Name(), info.Serial, info.Path)
				},
				func(path string) {
					fmt.Printf("Detached: %s\n", path)
				},
			)
			if err != nil {
				return err
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			fmt.Println("Watching for decks, press Ctrl+C to stop.")
			<-sig
			mon.Stop()
			return nil
		},
	}
)

func init() {
	RootCmd.AddCommand(watchCmd)
}
