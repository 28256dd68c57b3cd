package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/muesli/coral"

	"github.com/griddeck/griddeck"
	"github.com/griddeck/griddeck/macrodeck"
)

var (
	readCmd = &coral.Command{
		Use:   "read",
		Short: "read the deck, printing key, dial and touch events",
		RunE: func(cmd *coral.Command, args []string) error {
			if err := openDeck(); err != nil {
				return err
			}
			defer closeDeck()

			m := macrodeck.New(d, macrodeck.WithLogger(log))

			for key := 0; key < d.KeyCount(); key++ {
				err := m.ConfigureKey(key,
					macrodeck.WithOnPress(func(key int) {
						fmt.Printf("Key %d: pressed\n", key)
					}),
					macrodeck.WithOnRelease(func(key int) {
						fmt.Printf("Key %d: released\n", key)
					}),
				)
				if err != nil {
					return err
				}
			}
			for dial := 0; dial < d.DialCount(); dial++ {
				if err := m.RegisterDialTurnMacro(dial, func(dial, delta int) {
					fmt.Printf("Dial %d: turned %+d\n", dial, delta)
				}); err != nil {
					return err
				}
				if err := m.RegisterDialPushMacro(dial, func(dial int, pressed bool) {
					if pressed {
						fmt.Printf("Dial %d: pressed\n", dial)
					} else {
						fmt.Printf("Dial %d: released\n", dial)
					}
				}); err != nil {
					return err
				}
			}
			if d.HasTouchscreen() {
				touch := func(ev griddeck.TouchEvent) {
					fmt.Printf("Touch %s: (%d,%d)", ev.Type, ev.X, ev.Y)
					if ev.Type == griddeck.TouchDrag {
						fmt.Printf(" -> (%d,%d)", ev.EndX, ev.EndY)
					}
					fmt.Println()
				}
				err := m.RegisterTouchMacros(map[griddeck.TouchEventType]macrodeck.TouchHandler{
					griddeck.TouchShort: touch,
					griddeck.TouchLong:  touch,
					griddeck.TouchDrag:  touch,
				})
				if err != nil {
					return err
				}
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				errCh <- m.RunLoop()
			}()

			fmt.Printf("Reading %s, press Ctrl+C to stop.\n", d.Name())
			select {
			case <-sig:
				m.StopLoop()
				return <-errCh
			case err := <-errCh:
				return err
			}
		},
	}
)

func init() {
	RootCmd.AddCommand(readCmd)
}
