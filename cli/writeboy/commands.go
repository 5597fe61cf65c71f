package main

import (
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"
	"writeboy/engine"
	"writeboy/link"
	"writeboy/link/usbserial"
	"writeboy/protocol"
)

type settings struct {
	Port            string
	Baud            int
	Timeout         time.Duration
	IdleLimit       time.Duration
	Dir             string
	SkipCheck       bool
	Verbose         bool
	ContinueOnError bool
	Stats           bool
	Reveal          bool
}

func loadSettings(v *viper.Viper) settings {
	return settings{
		Port:            v.GetString("port"),
		Baud:            v.GetInt("baud"),
		Timeout:         v.GetDuration("timeout"),
		IdleLimit:       v.GetDuration("idle-limit"),
		Dir:             v.GetString("dir"),
		SkipCheck:       v.GetBool("skip-check"),
		Verbose:         v.GetBool("verbose"),
		ContinueOnError: v.GetBool("continue-on-error"),
		Stats:           v.GetBool("stats"),
		Reveal:          v.GetBool("reveal"),
	}
}

// newViper binds flags, WRITEBOY_* environment variables and an optional writeboy.yaml.
func newViper(cmd *cobra.Command, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("WRITEBOY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("writeboy")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "writeboy"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	} else {
		log.Debugf("config: using %s", v.ConfigFileUsed())
	}

	return v, nil
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "writeboy",
		Short: "Read and write Game Boy cartridges through a serial cartridge reader",
		Long: "Reads ROM and save RAM from a Game Boy cartridge and writes save RAM back.\n" +
			"Also writes ROM and mapping data to a GB Memory multi-cartridge.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./writeboy.yaml)")
	flags.StringP("port", "p", "", "serial port of the reader, ws:// URL of a serial bridge, or \"mock\" (detected when empty)")
	flags.IntP("baud", "b", link.DefaultBaud, "serial port baud rate")
	flags.Duration("timeout", link.DefaultReadTimeout, "read timeout; a read that stays empty this long ends a transfer")
	flags.Duration("idle-limit", protocol.DefaultIdleLimit, "longest silence tolerated while waiting for a response")
	flags.String("dir", "", "directory for file names derived from the cartridge title")
	flags.Bool("skip-check", false, "skip the header logo check (may produce a corrupted image)")
	flags.BoolP("verbose", "v", false, "show all device responses and debug logging")
	flags.Bool("continue-on-error", false, "keep going when the device reports an error")
	flags.Bool("stats", false, "print a chunk latency histogram after a transfer")
	flags.Bool("reveal", false, "open the folder of the image file when done")

	root.AddCommand(
		newOperationCommand(engine.Info, "info", "Show cartridge information from the header and exit", &configFile),
		newDumpCommand(&configFile),
		newWriteCommand(&configFile),
		newPortsCommand(),
	)

	return root
}

func newDumpCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Read data from the cartridge into a file",
	}
	cmd.AddCommand(
		newOperationCommand(engine.DumpROM, "rom [file]", "Dump ROM (on a GB Memory cartridge, the first block only)", configFile),
		newOperationCommand(engine.DumpGBMCROM, "gbmc-rom [file]", "Dump all blocks of a GB Memory cartridge as one image", configFile),
		newOperationCommand(engine.DumpSRAM, "sram [file]", "Dump save RAM", configFile),
		newOperationCommand(engine.DumpMapping, "mapping [file]", "Dump the mapping of a GB Memory cartridge", configFile),
		newOperationCommand(engine.DumpTitles, "titles", "List the titles on a GB Memory multi-cartridge", configFile),
	)
	return cmd
}

func newWriteCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a file to the cartridge",
	}
	cmd.AddCommand(
		newOperationCommand(engine.WriteSRAM, "sram [file]", "Write save RAM", configFile),
		newOperationCommand(engine.WriteGBMCROM, "gbmc-rom [file]", "Write ROM to a GB Memory cartridge", configFile),
		newOperationCommand(engine.WriteMapping, "mapping [file]", "Write the mapping of a GB Memory cartridge", configFile),
	)
	return cmd
}

func newOperationCommand(op engine.Operation, use, short string, configFile *string) *cobra.Command {
	var slot string

	maxArgs := 1
	if op.Direction == engine.None || op.Direction == engine.Lines {
		maxArgs = 0
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(maxArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd, *configFile)
			if err != nil {
				return err
			}
			cfg := loadSettings(v)
			setupLogging(cfg.Verbose)

			opts := engine.Options{
				Dir:       cfg.Dir,
				Slot:      slot,
				SkipCheck: cfg.SkipCheck,
			}
			if len(args) > 0 {
				opts.Filename = args[0]
			}

			return runOperation(cmd, op, cfg, opts)
		},
	}
	if op.Slotted {
		cmd.Flags().StringVarP(&slot, "title", "t", "", "title number (1..7) on a GB Memory multi-cartridge")
	}

	return cmd
}

func runOperation(cmd *cobra.Command, op engine.Operation, cfg settings, opts engine.Options) (err error) {
	desc := link.Descriptor{
		Port:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.Timeout,
	}
	l, err := link.Open(link.DriverFor(desc.Port), desc)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := l.Close(); cerr != nil {
			log.Warn(cerr)
		}
	}()

	out := cmd.OutOrStdout()
	reporter := newConsoleReporter(out, isTerminal(os.Stdout.Fd()))

	conn := protocol.NewConn(l, reporter)
	conn.Verbose = cfg.Verbose
	conn.ContinueOnError = cfg.ContinueOnError
	if cfg.IdleLimit > 0 {
		conn.IdleLimit = cfg.IdleLimit
	}
	if cfg.Stats {
		conn.Stats = &protocol.Stats{}
	}

	res, err := engine.NewController(conn, reporter).Run(cmd.Context(), op, opts)
	if err != nil {
		reporter.Abort()
	}
	if conn.Stats != nil && conn.Stats.Chunks > 0 {
		if serr := conn.Stats.Fprint(out); serr != nil {
			log.Warn(serr)
		}
	}
	if err != nil {
		return err
	}

	if cfg.Reveal && res.Path != "" {
		dir, aerr := filepath.Abs(filepath.Dir(res.Path))
		if aerr == nil {
			aerr = open.Start(dir)
		}
		if aerr != nil {
			log.Warnf("could not open %s: %v", res.Path, aerr)
		}
	}

	return nil
}

func newPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports; * marks likely cartridge readers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := usbserial.ListPorts()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, p := range ports {
				mark := " "
				if p.Known {
					mark = "*"
				}
				id := "-"
				if p.IsUSB {
					id = p.VID + ":" + p.PID
				}
				fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\n", mark, p.Name, id, p.SerialNumber, p.Product)
			}
			return w.Flush()
		},
	}
}
