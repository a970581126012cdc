// Package config loads the waypoint configuration file.
//
// The configuration is stored in waypoint.toml or waypoint.json next to the
// route table. Both formats carry the same keys:
//
//	routes = "routes.yaml"
//	notFound = "not-found"
//
//	[navigation]
//	maxRedirects = 10
//	timeout = "5s"
//	historyLimit = 50
//
//	[log]
//	level = "info"
//	format = "text"
//
//	[host]
//	addr = "localhost:8080"
//
//	[metrics]
//	enabled = true
//	namespace = "waypoint"
//
//	[views]
//	bucket = "my-views"
//	prefix = "views/"
//	region = "eu-west-1"
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Routes:", cfg.RoutesPath())
package config
