package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sxk/signal-link/internal/config"
	"github.com/sxk/signal-link/internal/identity"
	"github.com/sxk/signal-link/internal/session"
	"github.com/sxk/signal-link/internal/signal"
)

var cfgFile string

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "signal-link",
		Short:         "Share your position with one paired partner",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(
		newIDCmd(),
		newStatusCmd(),
		newJoinCmd(),
		newPingCmd(),
		newShareCmd(),
		newWatchCmd(),
		newResetCmd(),
	)
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDeviceDefaults(viper.GetViper())
	defaults := config.NewDeviceViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.String("server", defaults.GetString("server"), "Signal server base URL")
	flags.String("origin", defaults.GetString("origin"), "Origin used in invitation links (defaults to server)")
	flags.String("state-file", defaults.GetString("state-file"), "Local state file")
	flags.String("redis-url", defaults.GetString("redis-url"), "Keep local state in Redis instead of the state file")
	flags.String("kv-namespace", defaults.GetString("kv-namespace"), "Redis namespace for local state")
	flags.Float64("lat", defaults.GetFloat64("lat"), "Current latitude")
	flags.Float64("lng", defaults.GetFloat64("lng"), "Current longitude")
	flags.Duration("poll-interval", defaults.GetDuration("poll-interval"), "Pairing poll interval")
	flags.String("log-level", defaults.GetString("log-level"), "Log level (debug, info, warn, error)")

	for _, name := range []string{
		"server", "origin", "state-file", "redis-url", "kv-namespace",
		"lat", "lng", "poll-interval", "log-level",
	} {
		bindFlag(cmd, name)
	}
}

func bindFlag(cmd *cobra.Command, name string) {
	if err := viper.BindPFlag(name, cmd.PersistentFlags().Lookup(name)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func newIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id",
		Short: "Print this device's client id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintln(cmd.OutOrStdout(), identity.GetOrCreateClientID(cmd.Context(), a.store))
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session, both positions and the distance between them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			o, err := a.orchestrator(cmd.Context(), "")
			if err != nil {
				return err
			}
			renderSnapshot(cmd.OutOrStdout(), o.Snapshot(), o.InviteURL(), time.Now())
			return nil
		},
	}
}

func newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <invite-url-or-code>",
		Short: "Adopt the session from an invitation as the partner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, ok := session.ParseInvite(args[0])
			if !ok {
				return fmt.Errorf("no session code found in %q", args[0])
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.resolver.Resolve(cmd.Context(), code)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Joined session %s as %s\n", s.Code, s.Role())
			return nil
		},
	}
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Publish your position and send the invitation to your partner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			o, err := a.orchestrator(cmd.Context(), "")
			if err != nil {
				return err
			}

			result, err := o.Ping(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signal sent. Invite: %s\n", result.InviteURL)
			if result.NotifyErr != nil {
				fmt.Fprintf(out, "Partner was not notified: %v\n", result.NotifyErr)
			}
			return nil
		},
	}
}

func newShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share",
		Short: "Publish your position as synced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			o, err := a.orchestrator(cmd.Context(), "")
			if err != nil {
				return err
			}
			if err := o.Share(cmd.Context()); err != nil {
				return err
			}
			renderSnapshot(cmd.OutOrStdout(), o.Snapshot(), o.InviteURL(), time.Now())
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	var shareFirst bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the pairing until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := ossignal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			o, err := a.orchestrator(ctx, "")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			invite := o.InviteURL()
			o.OnChange(func(s signal.Snapshot) {
				renderSnapshot(out, s, invite, time.Now())
			})
			if shareFirst {
				if err := o.Share(ctx); err != nil {
					fmt.Fprintf(out, "Share failed: %v\n", err)
				}
			}
			renderSnapshot(out, o.Snapshot(), invite, time.Now())

			if err := o.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&shareFirst, "share", false, "Share your position before watching")
	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.resolver.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session cleared")
			return nil
		},
	}
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}
