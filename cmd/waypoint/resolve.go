package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/waypoint"
	"github.com/vango-dev/waypoint/internal/catalog"
	werrors "github.com/vango-dev/waypoint/internal/errors"
	"github.com/vango-dev/waypoint/pkg/navigation"
	"github.com/vango-dev/waypoint/pkg/telemetry"
	"github.com/vango-dev/waypoint/pkg/view"
)

func resolveCmd(flags *globalFlags) *cobra.Command {
	var (
		user        string
		roles       []string
		features    []string
		maintenance bool
		render      bool
		asJSON      bool
		trace       bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <path>...",
		Short: "Navigate to one or more paths and print the commits",
		Long: `Navigate to each path in order, as one session, and print what was
committed. Failed navigations are reported and the next path is tried.

Examples:
  waypoint resolve /users/2
  waypoint resolve /admin --as=1 --role=admin --render
  waypoint resolve /admin/beta --as=1 --role=admin --feature=beta --trace`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			session := catalog.NewSession()
			if user != "" {
				session.SignIn(user, roles...)
			} else if len(roles) > 0 {
				return usageError("--role requires --as")
			}
			for _, f := range features {
				session.Enable(f)
			}
			session.SetMaintenance(maintenance)

			var extra waypoint.Config
			if trace {
				extra.Observers = append(extra.Observers, navigation.ObserverFunc(func(e navigation.Event) {
					fmt.Printf("    %-10s %s (redirects=%d, %s)\n", e.State, e.Path, e.Redirects, e.Elapsed)
				}))
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := buildApp(ctx, cfg, session, extra)
			if err != nil {
				return err
			}

			failed := 0
			var last error
			for _, target := range args {
				navCtx, cancel := context.WithTimeout(ctx, cfg.NavigationTimeout())
				c, err := app.Navigate(navCtx, target)
				cancel()
				if err != nil {
					failed++
					last = err
					errorMsg("%s: %s (%s)", target, err, telemetry.Classify(err))
					continue
				}
				if err := printCommit(c, render, asJSON); err != nil {
					return err
				}
			}
			if failed > 0 {
				code := "W300"
				if telemetry.Classify(last) == telemetry.OutcomeRedirectLoop {
					code = "W301"
				}
				return werrors.New(code).
					WithDetail(fmt.Sprintf("%d of %d navigations failed", failed, len(args))).
					Wrap(last)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&user, "as", "", "Sign in as this user id")
	f.StringSliceVar(&roles, "role", nil, "Roles of the signed-in user")
	f.StringSliceVar(&features, "feature", nil, "Enable a feature flag")
	f.BoolVar(&maintenance, "maintenance", false, "Turn maintenance mode on")
	f.BoolVar(&render, "render", false, "Print the rendered view")
	f.BoolVar(&asJSON, "json", false, "Print commits as JSON")
	f.BoolVar(&trace, "trace", false, "Print every state transition")
	return cmd
}

func printCommit(c *navigation.Commit, render, asJSON bool) error {
	if asJSON {
		out := map[string]any{
			"path":      c.Path,
			"url":       c.URL(),
			"requested": c.Requested,
			"redirects": c.Redirects,
			"view":      c.ViewID,
			"title":     c.Title,
			"notFound":  c.NotFound,
			"cached":    c.Cached,
		}
		if c.Match != nil {
			out["params"] = c.Match.Params
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if c.NotFound {
		warn("%s: no route matched", c.Requested)
	} else {
		success("%s -> %s", c.Requested, c.URL())
	}
	if len(c.Redirects) > 0 {
		info("redirects: %s", strings.Join(c.Redirects, " -> "))
	}
	if c.ViewID != "" {
		info("view:      %s", c.ViewID)
	}
	if c.Title != "" {
		info("title:     %s", c.Title)
	}
	if c.Match != nil && len(c.Match.Params) > 0 {
		info("params:    %v", c.Match.Params)
	}
	if render && c.View != nil {
		html, err := view.RenderToString(c.View)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(strings.TrimSpace(html))
		fmt.Println()
	}
	return nil
}
