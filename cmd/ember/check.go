package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ember/internal/driver"
	"ember/internal/project"
)

var checkNoCache bool

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
)

func init() {
	checkCmd.Flags().BoolVar(&checkNoCache, "no-cache", false, "bypass the compile cache")
}

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Validate the project manifest and its unit sources",
	Long: `Locates ember.toml starting from dir (default "."), validates every
declared unit, hashes its sources and reports the compile cache state
for each unit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		return runCheck(cmd, dir, quiet)
	},
}

func runCheck(cmd *cobra.Command, dir string, quiet bool) error {
	out := cmd.OutOrStdout()

	manifestPath, ok, err := project.FindManifest(dir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no %s found in %q or any parent directory", project.ManifestName, dir)
	}

	manifest, err := project.LoadManifest(manifestPath)
	if err != nil {
		errColor.Fprintln(os.Stderr, err)
		return fmt.Errorf("invalid manifest")
	}
	if !quiet {
		fmt.Fprintf(out, "package %s (%s)\n", manifest.Package.Name, manifestPath)
	}

	log := newLogger(quiet)
	cache := openCache(manifest, log)

	broken := 0
	for _, unit := range manifest.Units {
		digest, err := manifest.UnitDigest(unit)
		if err != nil {
			broken++
			fmt.Fprintf(out, "  %s %s: %v\n", errColor.Sprint("FAIL"), unit.Name, err)
			continue
		}

		status := "ready"
		if cache != nil {
			var sum driver.UnitSummary
			if hit, err := cache.Get(digest, &sum); err != nil {
				log.Warn().Str("unit", unit.Name).Err(err).Msg("cache read failed")
			} else if hit {
				if sum.Broken {
					status = "cached (broken)"
				} else {
					status = fmt.Sprintf("cached (%d types, %d functions)", sum.Types, sum.Functions)
				}
			} else {
				status = "not cached"
			}
		}

		fmt.Fprintf(out, "  %s %s: %d source file(s), %s\n",
			okColor.Sprint("OK"), unit.Name, len(unit.Sources), status)
	}

	if broken > 0 {
		return fmt.Errorf("%d of %d unit(s) failed validation", broken, len(manifest.Units))
	}
	if !quiet {
		warnColor.Fprintf(out, "%d unit(s) validated\n", len(manifest.Units))
	}
	return nil
}

func newLogger(quiet bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if quiet {
		level = zerolog.ErrorLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: color.NoColor}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func openCache(manifest *project.Manifest, log zerolog.Logger) *driver.DiskCache {
	if checkNoCache || !manifest.Engine.Cache {
		return nil
	}
	cache, err := driver.OpenDiskCache("ember")
	if err != nil {
		log.Warn().Err(err).Msg("compile cache unavailable")
		return nil
	}
	return cache
}
