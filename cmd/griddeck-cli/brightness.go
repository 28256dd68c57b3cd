package main

import (
	"fmt"
	"strconv"

	"github.com/muesli/coral"
)

var (
	brightnessCmd = &coral.Command{
		Use:   "brightness <percent>",
		Short: "set the backlight brightness (0-100)",
		Args:  coral.ExactArgs(1),
		RunE: func(cmd *coral.Command, args []string) error {
			percent, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parsing brightness %q: %w", args[0], err)
			}

			if err := openDeck(); err != nil {
				return err
			}
			defer closeDeck()

			return d.SetBrightness(percent)
		},
	}
)

func init() {
	RootCmd.AddCommand(brightnessCmd)
}
