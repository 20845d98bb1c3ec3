// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/codegangsta/cli"
	shlex "github.com/flynn-archive/go-shlex"
	"github.com/peterh/liner"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	log "github.com/golang/glog"

	"github.com/opensplat/splatview/internal/cache"
	"github.com/opensplat/splatview/internal/core"
	"github.com/opensplat/splatview/internal/format"
	"github.com/opensplat/splatview/internal/library"
	"github.com/opensplat/splatview/internal/remote"
	"github.com/opensplat/splatview/internal/scene"
	"github.com/opensplat/splatview/internal/settings"
)

var usage = `
	splatview inspects splat assets and drives a live decode cache. One-shot
	commands (info, meta, formats, recent) work on single files; the shell
	starts an interactive session against a cache instance, which is the
	same decode path the viewer UI uses.
`

type viewerCli struct {
	app *cli.App

	// Lazily initialized on first use so that one-shot commands that never
	// touch the cache don't open stores.
	cache    *cache.Cache
	graph    *scene.MemGraph
	registry *format.Registry
	store    *settings.Store
	lib      *library.DB

	inShell bool
}

func newViewerCli() *viewerCli {
	v := &viewerCli{}
	app := cli.NewApp()
	app.Name = "splatview"
	app.Usage = usage

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "exact_scan",
			Usage: "Disable the constant-stride probe when skipping list-typed elements",
		},
		cli.StringFlag{
			Name:  "remote",
			Usage: "Base URL of a remote asset source",
		},
		cli.StringFlag{
			Name:  "settings_db",
			Usage: "Path to the per-file settings store",
		},
		cli.StringFlag{
			Name:  "library_db",
			Usage: "Path to the recent-assets library",
		},
		cli.StringFlag{
			Name:  "status_addr",
			Usage: "Address to serve /status and /metrics on (shell mode)",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "formats",
			Usage:  "Lists supported file extensions.",
			Action: v.cmdFormats,
		},
		{
			Name:      "info",
			Aliases:   []string{"i"},
			Usage:     "Decodes a file and prints what came out.",
			ArgsUsage: "<file>",
			Action:    v.cmdInfo,
		},
		{
			Name:      "meta",
			Aliases:   []string{"m"},
			Usage:     "Prints embedded camera metadata for a file.",
			ArgsUsage: "<file>",
			Action:    v.cmdMeta,
		},
		{
			Name:   "recent",
			Usage:  "Lists recently opened assets from the library.",
			Action: v.cmdRecent,
		},
		{
			Name:      "open",
			Aliases:   []string{"o"},
			Usage:     "Decodes and activates an asset in the live cache.",
			ArgsUsage: "<file-or-handle>",
			Action:    v.cmdOpen,
		},
		{
			Name:   "ls",
			Usage:  "Lists cached entries.",
			Action: v.cmdLs,
		},
		{
			Name:      "retain",
			Usage:     "Evicts every cached entry except the given ids.",
			ArgsUsage: "[<id>...]",
			Action:    v.cmdRetain,
		},
		{
			Name:   "reset",
			Usage:  "Disposes everything in the cache.",
			Action: v.cmdReset,
		},
		{
			Name:      "focus",
			Usage:     "Patches the focus distance of a cached entry ('-' clears).",
			ArgsUsage: "<id> <distance|->",
			Action:    v.cmdFocus,
		},
		{
			Name:   "shell",
			Usage:  "Starts an interactive shell against a live cache.",
			Action: v.cmdShell,
		},
	}
	v.app = app
	return v
}

func (v *viewerCli) run(args []string) {
	if err := v.app.Run(args); err != nil {
		log.Errorf("%v", err)
	}
}

func (v *viewerCli) stop() {
	if v.store != nil {
		v.store.Close()
	}
	if v.lib != nil {
		v.lib.Close()
	}
}

// getCache builds the cache and its collaborators on first use.
func (v *viewerCli) getCache(c *cli.Context) *cache.Cache {
	if v.cache != nil {
		return v.cache
	}
	v.graph = scene.NewMemGraph()
	v.registry = format.DefaultRegistry(format.Config{ExactScan: c.GlobalBool("exact_scan")})

	cfg := cache.Config{Registry: v.registry, Graph: v.graph}
	if base := c.GlobalString("remote"); base != "" {
		cfg.Source = remote.NewHTTPSource(remote.HTTPSourceConfig{BaseURL: base})
	}
	if path := c.GlobalString("settings_db"); path != "" {
		store, err := settings.Open(path)
		if err != nil {
			log.Errorf("opening settings store %q: %v", path, err)
		} else {
			v.store = store
			cfg.Settings = store
		}
	}
	if path := c.GlobalString("library_db"); path != "" {
		lib, err := library.Open(path)
		if err != nil {
			log.Errorf("opening library %q: %v", path, err)
		} else {
			v.lib = lib
		}
	}
	v.cache = cache.New(cfg)
	return v.cache
}

func (v *viewerCli) getRegistry(c *cli.Context) *format.Registry {
	if v.registry == nil {
		v.registry = format.DefaultRegistry(format.Config{ExactScan: c.GlobalBool("exact_scan")})
	}
	return v.registry
}

func (v *viewerCli) cmdFormats(c *cli.Context) error {
	for _, ext := range v.getRegistry(c).SupportedExtensions() {
		fmt.Println("." + ext)
	}
	return nil
}

func (v *viewerCli) cmdInfo(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: info <file>")
	}
	name := c.Args().First()
	desc := v.getRegistry(c).Resolve(name)
	if desc == nil {
		return core.ErrUnsupportedFormat.Error()
	}
	data, err := ioutil.ReadFile(name)
	if err != nil {
		return err
	}
	res, derr := desc.DecodeResource(data)
	if derr != core.NoError {
		return derr.Error()
	}
	defer res.Release()
	fmt.Printf("format: %s (%s color)\n", desc.Label, desc.ColorSpace)
	if cloud, ok := res.(*scene.SplatCloud); ok {
		fmt.Printf("points: %d\n", cloud.Count())
	}
	cam, merr := desc.DecodeMetadata(data)
	if merr != core.NoError {
		fmt.Println("camera: unreadable")
	} else if cam == nil {
		fmt.Println("camera: none")
	} else {
		fmt.Printf("camera: fx=%g fy=%g %dx%d\n",
			cam.Intrinsics.Fx, cam.Intrinsics.Fy,
			cam.Intrinsics.ImageWidth, cam.Intrinsics.ImageHeight)
	}
	return nil
}

func (v *viewerCli) cmdMeta(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: meta <file>")
	}
	name := c.Args().First()
	desc := v.getRegistry(c).Resolve(name)
	if desc == nil {
		return core.ErrUnsupportedFormat.Error()
	}
	data, err := ioutil.ReadFile(name)
	if err != nil {
		return err
	}
	cam, merr := desc.DecodeMetadata(data)
	if merr != core.NoError {
		return merr.Error()
	}
	if cam == nil {
		fmt.Println("no camera metadata")
		return nil
	}
	fmt.Printf("fx: %g\nfy: %g\ncx: %g\ncy: %g\nimage: %dx%d\n",
		cam.Intrinsics.Fx, cam.Intrinsics.Fy,
		cam.Intrinsics.Cx, cam.Intrinsics.Cy,
		cam.Intrinsics.ImageWidth, cam.Intrinsics.ImageHeight)
	if cam.Extrinsics != nil {
		fmt.Printf("extrinsics: %v\n", *cam.Extrinsics)
	}
	for _, comment := range cam.Comments {
		fmt.Printf("comment: %s\n", comment)
	}
	return nil
}

func (v *viewerCli) cmdRecent(c *cli.Context) error {
	v.getCache(c)
	if v.lib == nil {
		return fmt.Errorf("no library; pass --library_db")
	}
	assets, err := v.lib.Recent(20)
	if err != nil {
		return err
	}
	for _, a := range assets {
		fmt.Printf("%s\t%s\t%s\t%s\n", a.ID, a.Format, a.LastOpened.Format("2006-01-02 15:04"), a.Path)
	}
	return nil
}

func (v *viewerCli) cmdOpen(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: open <file-or-handle>")
	}
	name := c.Args().First()
	ca := v.getCache(c)

	ref := core.AssetRef{ID: core.AssetID(name), Name: filepath.Base(name)}
	if c.GlobalString("remote") != "" && !fileExists(name) {
		ref.Source, ref.Handle = "remote", name
	} else {
		data, err := ioutil.ReadFile(name)
		if err != nil {
			return err
		}
		ref.Data = data
	}

	entry, err := ca.Activate(context.Background(), ref)
	if err != core.NoError {
		return err.Error()
	}
	if v.lib != nil {
		if lerr := v.lib.Touch(entry.ID, entry.Ref.Name, name, entry.FormatLabel); lerr != nil {
			log.Errorf("library: recording %q: %v", name, lerr)
		}
	}
	fmt.Printf("active: %s (%s)\n", entry.ID, entry.FormatLabel)
	return nil
}

func (v *viewerCli) cmdLs(c *cli.Context) error {
	for _, info := range v.getCache(c).Snapshot() {
		marker := " "
		if info.Visible {
			marker = "*"
		}
		fmt.Printf("%s %s\t%s\tcamera=%v\tfocus=%s\n", marker, info.ID, info.Format, info.HasCamera, info.Focus)
	}
	return nil
}

func (v *viewerCli) cmdRetain(c *cli.Context) error {
	keep := make(map[core.AssetID]bool)
	for _, arg := range c.Args() {
		keep[core.AssetID(arg)] = true
	}
	v.getCache(c).Retain(keep)
	return nil
}

func (v *viewerCli) cmdReset(c *cli.Context) error {
	v.getCache(c).Reset()
	return nil
}

func (v *viewerCli) cmdFocus(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: focus <id> <distance|->")
	}
	id := core.AssetID(c.Args().Get(0))
	arg := c.Args().Get(1)
	if arg == "-" {
		v.getCache(c).PatchFocusDistance(id, nil)
		return nil
	}
	val, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return fmt.Errorf("bad distance %q", arg)
	}
	v.getCache(c).PatchFocusDistance(id, &val)
	return nil
}

// cmdShell implements the "shell" subcommand.
func (v *viewerCli) cmdShell(c *cli.Context) error {
	v.inShell = true
	defer func() { v.inShell = false }()

	// Make cli not exit on errors.
	cli.OsExiter = func(int) {}

	// Build the cache from the outer context now: commands run from the
	// prompt don't see the global flags again.
	ca := v.getCache(c)

	if addr := c.GlobalString("status_addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/status", ca.StatusHandler())
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Errorf("status server: %v", err)
			}
		}()
	}

	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) (out []string) {
		for _, cmd := range v.app.Commands {
			if strings.HasPrefix(cmd.Name, line) {
				out = append(out, cmd.Name)
			}
		}
		return
	})
	defer ln.Close()

	for {
		input, err := ln.Prompt("(splatview) ")
		if err != nil {
			log.Errorf("error: %v", err)
			return nil
		}

		// shlex splits with shell-style quoting so filenames with spaces
		// work.
		args, err := shlex.Split(input)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			return nil
		}
		if err := v.app.Run(append([]string{"splatview"}, args...)); err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		ln.AppendHistory(input)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
