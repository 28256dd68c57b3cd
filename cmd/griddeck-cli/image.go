package main

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"

	"github.com/muesli/coral"
	_ "golang.org/x/image/bmp"

	"github.com/griddeck/griddeck/imagehelper"
)

var (
	imageCmd = &coral.Command{
		Use:   "image <key> <file>",
		Short: "show an image file on a key display",
		Args:  coral.ExactArgs(2),
		RunE: func(cmd *coral.Command, args []string) error {
			key, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parsing key %q: %w", args[0], err)
			}

			img, err := loadImage(args[1])
			if err != nil {
				return err
			}

			if err := openDeck(); err != nil {
				return err
			}
			defer closeDeck()

			scaled, err := imagehelper.ScaledKeyImage(d, img)
			if err != nil {
				return err
			}
			payload, err := imagehelper.EncodeKeyImage(d, scaled)
			if err != nil {
				return err
			}
			if err := d.SetKeyImage(key, payload); err != nil {
				return err
			}
			return d.Flush()
		},
	}
)

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

func init() {
	RootCmd.AddCommand(imageCmd)
}
