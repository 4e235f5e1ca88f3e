// Command restfs is a small driver for the restfs engine: it opens a
// domain on the configured server and runs one operation against it.
//
// Usage:
//
//	restfs -domain /home/user/data.h5 ls /
//	restfs -domain /home/user/data.h5 info /measurements/run1
//	restfs -domain /home/user/data.h5 read /measurements/run1
//	restfs dump-config
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/h5works/restfs/internal/logger"
	"github.com/h5works/restfs/pkg/config"
	"github.com/h5works/restfs/pkg/errstack"
	"github.com/h5works/restfs/pkg/objects"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	domainPath := flag.String("domain", "", "domain path on the server")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: restfs [flags] <ls|info|read|dump-config> [path]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "restfs: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		fmt.Fprintf(os.Stderr, "restfs: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	command := flag.Arg(0)
	if command == "dump-config" {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "restfs: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		return
	}

	if *domainPath == "" {
		fmt.Fprintln(os.Stderr, "restfs: -domain is required")
		os.Exit(2)
	}
	path := "/"
	if flag.NArg() > 1 {
		path = flag.Arg(1)
	}

	objects.Init(cfg.Diagnostics)
	defer objects.Term()

	if err := run(cfg, command, *domainPath, path); err != nil {
		logger.Error("restfs: %v", err)
		// The diagnostic stack carries the causal chain; surface it at
		// debug level for troubleshooting.
		errstack.Walk(func(rec *errstack.Record) bool {
			logger.Debug("  %v", rec)
			return true
		})
		os.Exit(1)
	}
}

func run(cfg *config.Config, command, domainPath, path string) error {
	ctx := context.Background()

	client, err := objects.Connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	dom, err := client.OpenDomain(ctx, domainPath)
	if err != nil {
		return err
	}
	defer dom.Close()

	switch command {
	case "ls":
		return runList(ctx, dom, path)
	case "info":
		return runInfo(ctx, dom, path)
	case "read":
		return runRead(ctx, dom, path)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runList(ctx context.Context, dom *objects.Domain, path string) error {
	group, err := dom.OpenGroup(ctx, dom.Root(), path)
	if err != nil {
		return err
	}
	defer group.Release()

	table, err := dom.BuildLinkTable(ctx, group)
	if err != nil {
		return err
	}
	_, err = table.Iterate(func(_ int, link objects.Link) (bool, error) {
		switch link.Kind {
		case objects.LinkHard:
			fmt.Printf("%-10s %-20s %s\n", link.Kind, link.Name, link.TargetURI)
		case objects.LinkExternal:
			fmt.Printf("%-10s %-20s %s:%s\n", link.Kind, link.Name, link.TargetDomain, link.TargetPath)
		default:
			fmt.Printf("%-10s %-20s %s\n", link.Kind, link.Name, link.TargetPath)
		}
		return false, nil
	})
	return err
}

func runInfo(ctx context.Context, dom *objects.Domain, path string) error {
	dataset, err := dom.OpenDataset(ctx, dom.Root(), path)
	if err != nil {
		return err
	}
	defer dataset.Release()

	info, err := dom.StatDataset(ctx, dataset)
	if err != nil {
		return err
	}
	fmt.Printf("uri:        %s\n", info.URI)
	fmt.Printf("type:       %s\n", info.Type)
	fmt.Printf("dims:       %v\n", info.Dims)
	fmt.Printf("attributes: %d\n", info.AttributeCount)
	return nil
}

func runRead(ctx context.Context, dom *objects.Domain, path string) error {
	dataset, err := dom.OpenDataset(ctx, dom.Root(), path)
	if err != nil {
		return err
	}
	defer dataset.Release()

	data, err := dom.Read(ctx, dataset, objects.All())
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
