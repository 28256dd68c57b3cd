package main

import (
	"fmt"

	"github.com/muesli/coral"
)

var (
	listCmd = &coral.Command{
		Use:   "list",
		Short: "list all attached decks",
		RunE: func(cmd *coral.Command, args []string) error {
			devices, err := mgr.Enumerate()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Println("No decks found.")
				return nil
			}

			for _, dev := range devices {
				info := dev.Info()
				fmt.Printf("%s: %dx%d keys, serial %s (%s)\n",
					dev.Name(), dev.Columns(), dev.Rows(), info.Serial, info.Path)
			}
			return nil
		},
	}
)

func init() {
	RootCmd.AddCommand(listCmd)
}
