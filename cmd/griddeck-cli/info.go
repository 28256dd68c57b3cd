package main

import (
	"fmt"

	"github.com/muesli/coral"
)

var (
	infoCmd = &coral.Command{
		Use:   "info",
		Short: "print the capabilities of a deck",
		RunE: func(cmd *coral.Command, args []string) error {
			if err := openDeck(); err != nil {
				return err
			}
			defer closeDeck()

			info := d.Info()
			fmt.Printf("Model:     %s (%04x:%04x)\n", d.Name(), info.VendorID, info.ProductID)
			fmt.Printf("Path:      %s\n", info.Path)

			if serial, err := d.Serial(); err == nil {
				fmt.Printf("Serial:    %s\n", serial)
			}
			if fw, err := d.FirmwareVersion(); err == nil {
				fmt.Printf("Firmware:  %s\n", fw)
			}

			fmt.Printf("Keys:      %d (%dx%d)\n", d.KeyCount(), d.Columns(), d.Rows())
			if d.Visual() {
				f := d.KeyImageFormat()
				fmt.Printf("Key size:  %dx%d px (%s)\n", f.Size.X, f.Size.Y, f.Encoding)
			}
			if d.DialCount() > 0 {
				fmt.Printf("Dials:     %d\n", d.DialCount())
			}
			if d.HasTouchscreen() {
				w, h := d.TouchscreenSize()
				fmt.Printf("Touch:     %dx%d px\n", w, h)
			}
			if w, h := d.ScreenSize(); w > 0 && h > 0 {
				fmt.Printf("Screen:    %dx%d px\n", w, h)
			}
			if d.TouchKeyCount() > 0 {
				fmt.Printf("Touch keys: %d\n", d.TouchKeyCount())
			}
			return nil
		},
	}
)

func init() {
	RootCmd.AddCommand(infoCmd)
}
