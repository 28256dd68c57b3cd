package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/muesli/coral"
	"gopkg.in/yaml.v3"

	"github.com/griddeck/griddeck/imagehelper"
	"github.com/griddeck/griddeck/macrodeck"
)

// profile is the YAML layout of a macro profile.
type profile struct {
	Brightness int          `yaml:"brightness"`
	Keys       []profileKey `yaml:"keys"`
}

type profileKey struct {
	Key     int    `yaml:"key"`
	Label   string `yaml:"label"`
	Image   string `yaml:"image"`
	Command string `yaml:"command"`
}

var (
	profilePath string

	macroCmd = &coral.Command{
		Use:   "macro",
		Short: "run a macro profile, launching commands on key presses",
		RunE: func(cmd *coral.Command, args []string) error {
			path := profilePath
			if path == "" {
				var err error
				path, err = xdg.SearchConfigFile("griddeck/profile.yaml")
				if err != nil {
					return fmt.Errorf("locating profile: %w", err)
				}
			}

			prof, err := loadProfile(path)
			if err != nil {
				return err
			}

			if err := openDeck(); err != nil {
				return err
			}
			defer closeDeck()

			if prof.Brightness > 0 {
				if err := d.SetBrightness(prof.Brightness); err != nil {
					return err
				}
			}

			m := macrodeck.New(d, macrodeck.WithLogger(log))
			err = m.Batch(func(b *macrodeck.Batch) error {
				for _, pk := range prof.Keys {
					opts, err := keyOptions(pk)
					if err != nil {
						return err
					}
					if err := b.ConfigureKey(pk.Key, opts...); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				errCh <- m.RunLoop()
			}()

			fmt.Printf("Profile %s active on %s, press Ctrl+C to stop.\n", path, d.Name())
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

func loadProfile(path string) (*profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var prof profile
	if err := yaml.Unmarshal(data, &prof); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &prof, nil
}

// keyOptions builds the configuration of one profile key. Image files are
// loaded and encoded up front so a bad path fails before anything is pushed.
func keyOptions(pk profileKey) ([]macrodeck.KeyOption, error) {
	var opts []macrodeck.KeyOption
	if pk.Label != "" {
		opts = append(opts, macrodeck.WithLabel(pk.Label))
	}
	if pk.Image != "" {
		img, err := loadImage(pk.Image)
		if err != nil {
			return nil, err
		}
		scaled, err := imagehelper.ScaledKeyImage(d, img)
		if err != nil {
			return nil, err
		}
		payload, err := imagehelper.EncodeKeyImage(d, scaled)
		if err != nil {
			return nil, err
		}
		opts = append(opts, macrodeck.WithImage(payload))
	}
	if pk.Command != "" {
		command := pk.Command
		opts = append(opts, macrodeck.WithOnPress(func(int) {
			go runCommand(command)
		}))
	}
	return opts, nil
}

// runCommand hands a profile command to the shell. Failures are reported but
// never stop the macro loop.
func runCommand(command string) {
	out, err := exec.Command("/bin/sh", "-c", command).CombinedOutput()
	if err != nil {
		fmt.Fprintf(os.Stderr, "command %q: %v\n", command, err)
		if len(out) > 0 {
			fmt.Fprintf(os.Stderr, "%s", out)
		}
	}
}

func init() {
	macroCmd.Flags().StringVar(&profilePath, "profile", "", "profile file (default: griddeck/profile.yaml under the XDG config dirs)")
	RootCmd.AddCommand(macroCmd)
}
