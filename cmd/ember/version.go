package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ember/internal/version"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var (
	versionFormat   string
	versionShowFull bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShowFull, "full", false, "show every recorded bit of build metadata")
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show ember build fingerprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(versionFormat)
		switch format {
		case "pretty", "json":
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}

		payload := versionPayload{
			Tool:    "ember",
			Version: version.Version,
		}
		if versionShowFull {
			payload.GitCommit = version.GitCommit
			payload.BuildDate = version.BuildDate
		}

		if format == "json" {
			return renderVersionJSON(cmd.OutOrStdout(), payload)
		}
		renderVersionPretty(cmd.OutOrStdout(), payload)
		return nil
	},
}

func renderVersionJSON(w io.Writer, payload versionPayload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func renderVersionPretty(w io.Writer, payload versionPayload) {
	fmt.Fprintf(w, "ember %s\n", payload.Version)
	if payload.GitCommit != "" {
		fmt.Fprintf(w, "  commit %s\n", payload.GitCommit)
	}
	if payload.BuildDate != "" {
		fmt.Fprintf(w, "  built  %s\n", payload.BuildDate)
	}
}
