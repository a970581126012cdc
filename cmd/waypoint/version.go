package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// versionDeps are the modules whose versions "version --deps" reports.
var versionDeps = []string{
	"github.com/go-chi/chi/v5",
	"github.com/gorilla/websocket",
	"github.com/prometheus/client_golang",
	"go.opentelemetry.io/otel",
	"github.com/aws/aws-sdk-go-v2/service/s3",
	"gopkg.in/yaml.v3",
}

func versionCmd() *cobra.Command {
	var short, deps bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit and build information of the waypoint CLI.
With --deps, also print the versions of the router's host, telemetry,
view-source and route-file libraries linked into the binary.`,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(w, version)
				return
			}
			fmt.Fprintf(w, "  Version:    %s\n", version)
			fmt.Fprintf(w, "  Commit:     %s\n", commit)
			fmt.Fprintf(w, "  Built:      %s\n", date)
			fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
			if deps {
				printDeps(w)
			}
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	cmd.Flags().BoolVar(&deps, "deps", false, "Print linked library versions")
	return cmd
}

func printDeps(w io.Writer) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		fmt.Fprintln(w, "  Dependencies: unavailable")
		return
	}
	linked := make(map[string]string, len(info.Deps))
	for _, d := range info.Deps {
		linked[d.Path] = d.Version
	}
	fmt.Fprintln(w, "  Dependencies:")
	for _, path := range versionDeps {
		v, ok := linked[path]
		if !ok {
			v = "(not linked)"
		}
		fmt.Fprintf(w, "    %-40s %s\n", path, v)
	}
}
