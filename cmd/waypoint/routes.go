package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/waypoint/internal/catalog"
	"github.com/vango-dev/waypoint/pkg/host"
	"github.com/vango-dev/waypoint/pkg/registry"
)

func routesCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		Long: `Print the route table as a tree, with the guards, child guards and
resolvers attached to each route.

Examples:
  waypoint routes
  waypoint routes --routes=routes.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			reg := registry.New()
			if err := catalog.Register(reg, catalog.DemoDirectory()); err != nil {
				return err
			}
			table, err := loadTable(cfg, reg)
			if err != nil {
				return err
			}

			routes := host.Routes(table)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(routes)
			}
			printRoutes(os.Stdout, routes)
			success("%d routes", len(routes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a tree")
	return cmd
}

func printRoutes(w io.Writer, routes []host.RouteJSON) {
	for _, r := range routes {
		indent := strings.Repeat("  ", r.Depth-1)
		pattern := r.Pattern
		if r.Index {
			pattern = "(index)"
		}
		line := indent + pattern
		switch {
		case r.View != "":
			line += " -> " + r.View
		case r.RedirectTo != "":
			line += " => " + r.RedirectTo
		}
		var attrs []string
		if len(r.Guards) > 0 {
			attrs = append(attrs, "guards="+strings.Join(r.Guards, ","))
		}
		if len(r.ChildGuards) > 0 {
			attrs = append(attrs, "childGuards="+strings.Join(r.ChildGuards, ","))
		}
		if len(r.Resolvers) > 0 {
			attrs = append(attrs, "resolve="+strings.Join(r.Resolvers, ","))
		}
		if len(attrs) > 0 {
			line += "  [" + strings.Join(attrs, " ") + "]"
		}
		fmt.Fprintln(w, line)
	}
}
