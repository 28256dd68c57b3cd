package main

import (
	"github.com/muesli/coral"
)

var (
	resetCmd = &coral.Command{
		Use:   "reset",
		Short: "reset the deck, clearing all key displays",
		RunE: func(cmd *coral.Command, args []string) error {
			if err := openDeck(); err != nil {
				return err
			}
			defer closeDeck()

			return d.Reset()
		},
	}
)

func init() {
	RootCmd.AddCommand(resetCmd)
}
