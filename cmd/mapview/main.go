package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ensigniasec/mapview/internal/config"
	"github.com/ensigniasec/mapview/internal/geolocation"
	"github.com/ensigniasec/mapview/internal/mapview"
	"github.com/ensigniasec/mapview/internal/metrics"
	"github.com/ensigniasec/mapview/internal/navigation"
	"github.com/ensigniasec/mapview/internal/places"
	"github.com/ensigniasec/mapview/internal/tui"
)

//nolint:gochecknoglobals // Cobra requires package-level vars for flag bindings in current structure.
var (
	// Version metadata populated at build time via -ldflags.
	releaseVersion = "dev"
	commit         = "none"
	date           = "unknown"

	// Used for flags.
	configFile string
	verbose    bool
	logFormat  string
	logFile    string
	navLat     float64
	navLng     float64
	placeNote  string

	// cfg is loaded once per invocation in PersistentPreRun.
	cfg *config.Config
	// logOut is where logs go; the TUI discards them unless a log file is set.
	logOut io.Writer

	rootCmd = &cobra.Command{
		Use:   "mapview",
		Short: "A terminal map that opens on your location, stays inside its bounds and flies to places on request.",
		Long: `mapview shows an interactive map in the terminal. It starts on the whole allowed extent,
recenters on the device location when one is available, refuses to pan outside the
allowed extent and flies to any point requested over the navigation signal.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c, err := config.Load(configFile)
			if err != nil {
				logrus.Fatal(err)
			}
			cfg = c
			if err := setupLogging(c); err != nil {
				logrus.Fatal(err)
			}
		},
	}
)

//nolint:gochecknoinits // Cobra command wiring performed in init in current structure.
func init() {
	// Route logs to stderr to avoid polluting stdout.
	logrus.SetOutput(os.Stderr)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a mapview.yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable detailed logging output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides log.format)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file (overrides log.file)")

	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(placesCmd)
	rootCmd.AddCommand(navigateCmd)

	placesAddCmd.Flags().StringVar(&placeNote, "note", "", "Optional note shown next to the place")
	placesCmd.AddCommand(placesListCmd)
	placesCmd.AddCommand(placesAddCmd)
	placesCmd.AddCommand(placesRemoveCmd)
	placesCmd.AddCommand(placesResetCmd)

	navigateCmd.Flags().Float64Var(&navLat, "lat", 0, "Latitude to fly to")
	navigateCmd.Flags().Float64Var(&navLng, "lng", 0, "Longitude to fly to")
	_ = navigateCmd.MarkFlagRequired("lat")
	_ = navigateCmd.MarkFlagRequired("lng")

	// Built-in version flag: set version string and a custom template.
	rootCmd.Version = releaseVersion
	rootCmd.Annotations = map[string]string{"commit": commit, "date": date}
	rootCmd.SetVersionTemplate("{{printf \"%s %s\\ncommit: %s\\ndate: %s\\n\" .DisplayName .Version (index .Annotations \"commit\") (index .Annotations \"date\")}}")
}

// setupLogging applies level, format and destination from config, with flags taking precedence.
func setupLogging(c *config.Config) error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	format := c.Log.Format
	if logFormat != "" {
		format = logFormat
	}
	switch format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	path := c.Log.File
	if logFile != "" {
		path = logFile
	}
	if path == "" {
		logrus.SetOutput(os.Stderr)
		logOut = nil
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logrus.SetOutput(f)
	logOut = f
	return nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

// buildLocator returns the configured device capability; nil means none.
// A provider that cannot be set up is logged and treated as absent, so the map
// still opens on the fallback extent.
func buildLocator(g config.GeolocationConfig, log logrus.FieldLogger) (geolocation.Locator, func()) {
	switch g.Provider {
	case config.ProviderStatic:
		return geolocation.StaticLocator{Longitude: g.Longitude, Latitude: g.Latitude}, func() {}
	case config.ProviderGeoIP:
		loc, err := geolocation.OpenGeoIP(g.Database, g.Address)
		if err != nil {
			log.WithError(err).WithField("database", g.Database).Warn("geolocation unavailable, using the default extent")
			return nil, func() {}
		}
		return loc, func() { _ = loc.Close() }
	default:
		return nil, func() {}
	}
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Open the interactive map",
	Long:  "Open the map, locate the device using the configured provider and listen for navigation requests.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		st, err := places.NewStore(cfg.Places.File)
		if err != nil {
			logrus.Fatalf("Unable to open places: %v", err)
		}

		log := logrus.WithField("component", "map")
		loc, closeLoc := buildLocator(cfg.Geolocation, log)
		defer closeLoc()

		resolver := geolocation.NewResolver(loc,
			geolocation.WithOptions(cfg.Geolocation.Options()),
			geolocation.WithLogger(log),
		)

		var m *metrics.Metrics
		if cfg.Metrics.Addr != "" {
			m = metrics.New()
			go func() {
				if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
					logrus.WithError(err).Error("metrics server stopped")
				}
			}()
		}

		sig := navigation.NewSignal()
		if cfg.Navigation.NATSURL != "" {
			bus, err := navigation.Dial(cfg.Navigation.NATSURL, cfg.Navigation.Subject)
			if err != nil {
				logrus.Fatalf("Unable to connect to navigation bus: %v", err)
			}
			defer bus.Close()
			if err := bus.Forward(sig); err != nil {
				logrus.Fatalf("Unable to subscribe to navigation bus: %v", err)
			}
		}

		hostOpts := []mapview.HostOption{
			mapview.WithStyleURL(cfg.Map.StyleURL),
			mapview.WithResolver(resolver),
			mapview.WithMetrics(m),
			mapview.WithLogger(log),
		}
		if cfg.Viewport.YieldToUser {
			hostOpts = append(hostOpts, mapview.WithUserPrecedence())
		}

		err = tui.Run(ctx, tui.Options{
			Places:    st.List(),
			Signal:    sig,
			Host:      hostOpts,
			LogOutput: logOut,
		})
		if err != nil {
			logrus.Fatalf("Map failed: %v", err)
		}
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Manage saved places",
	Long:  "View, add, remove or reset the places shown on the map and offered as navigation targets.",
	Run: func(cmd *cobra.Command, args []string) {
		placesListCmd.Run(cmd, args)
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var placesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print saved places",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		st, err := places.NewStore(cfg.Places.File)
		if err != nil {
			logrus.Fatal(err)
		}
		st.Print(os.Stdout)
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var placesAddCmd = &cobra.Command{
	Use:   "add [NAME] [LAT] [LNG]",
	Short: "Add or replace a saved place",
	Args:  cobra.ExactArgs(3), //nolint:mnd // 'add' takes name, latitude and longitude
	Run: func(cmd *cobra.Command, args []string) {
		lat, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			logrus.Fatalf("Invalid latitude %q", args[1])
		}
		lng, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			logrus.Fatalf("Invalid longitude %q", args[2])
		}
		st, err := places.NewStore(cfg.Places.File)
		if err != nil {
			logrus.Fatal(err)
		}
		if err := st.Add(places.Place{Name: args[0], Latitude: lat, Longitude: lng, Note: placeNote}); err != nil {
			logrus.Fatal(err)
		}
		fmt.Fprintf(os.Stdout, "Saved %s\n", args[0])
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var placesRemoveCmd = &cobra.Command{
	Use:   "remove [NAME]",
	Short: "Remove a saved place",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := places.NewStore(cfg.Places.File)
		if err != nil {
			logrus.Fatal(err)
		}
		if err := st.Remove(args[0]); err != nil {
			logrus.Fatal(err)
		}
		fmt.Fprintf(os.Stdout, "Removed %s\n", args[0])
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var placesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default places",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		st, err := places.NewStore(cfg.Places.File)
		if err != nil {
			logrus.Fatal(err)
		}
		if err := st.Reset(); err != nil {
			logrus.Fatal(err)
		}
		fmt.Fprintln(os.Stdout, "Places reset to defaults")
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var navigateCmd = &cobra.Command{
	Use:   "navigate",
	Short: "Ask a running map to fly to a point",
	Long:  "Publish a navigation request on the configured NATS subject. A map opened with the same navigation settings flies there.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		req := navigation.Request{Latitude: navLat, Longitude: navLng}
		if err := req.Validate(); err != nil {
			logrus.Fatal(err)
		}
		if cfg.Navigation.NATSURL == "" {
			logrus.Fatal("navigation.nats_url is not configured")
		}
		bus, err := navigation.Dial(cfg.Navigation.NATSURL, cfg.Navigation.Subject)
		if err != nil {
			logrus.Fatalf("Unable to connect to navigation bus: %v", err)
		}
		defer bus.Close()
		if err := bus.Publish(req); err != nil {
			logrus.Fatal(err)
		}
		fmt.Fprintf(os.Stdout, "Sent navigation request to %s\n", cfg.Navigation.Subject)
	},
}

func main() {
	Execute()
}
