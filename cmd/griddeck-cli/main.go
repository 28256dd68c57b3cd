package main

import (
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/muesli/coral"
	"go.uber.org/zap"

	"github.com/griddeck/griddeck"
	"github.com/griddeck/griddeck/transport"
)

var (
	RootCmd = &coral.Command{
		Use:           "griddeck-cli",
		Short:         "griddeck-cli controls key-grid deck panels from the command line",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *coral.Command, args []string) error {
			var err error
			if debug {
				log, err = zap.NewDevelopment()
				if err != nil {
					return err
				}
			} else {
				log = zap.NewNop()
			}

			mgr, err = griddeck.NewManager(
				griddeck.WithTransport(transportName),
				griddeck.WithManagerLogger(log),
			)
			return err
		},
	}

	transportName string
	deviceID      string
	debug         bool

	log *zap.Logger
	mgr *griddeck.Manager
	d   *griddeck.Device
)

func init() {
	RootCmd.PersistentFlags().StringVar(&transportName, "transport", transport.USBName, "transport backend to enumerate")
	RootCmd.PersistentFlags().StringVar(&deviceID, "device", "", "serial or path of the deck to use (default: first found)")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDeck locates the selected deck, opens it and assigns it to d. The
// whole find-and-open sequence is retried because a freshly plugged deck can
// enumerate before its HID interface accepts connections.
func openDeck() error {
	return retry.Do(
		func() error {
			dev, err := findDeck()
			if err != nil {
				return err
			}
			if err := dev.Open(); err != nil {
				return err
			}
			d = dev
			return nil
		},
		retry.Attempts(5),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

func findDeck() (*griddeck.Device, error) {
	devices, err := mgr.Enumerate()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		info := dev.Info()
		if deviceID == "" || info.Serial == deviceID || info.Path == deviceID {
			return dev, nil
		}
	}
	if deviceID != "" {
		return nil, fmt.Errorf("%w: no deck matching %q", transport.ErrNotFound, deviceID)
	}
	return nil, fmt.Errorf("%w: no supported deck attached", transport.ErrNotFound)
}

func closeDeck() {
	if d != nil {
		_ = d.Close()
	}
}
