package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/teslashibe/go-vhuman/internal/log"
	"github.com/teslashibe/go-vhuman/pkg/animation"
	"github.com/teslashibe/go-vhuman/pkg/audio"
	"github.com/teslashibe/go-vhuman/pkg/avatar"
	"github.com/teslashibe/go-vhuman/pkg/mcp"
)

// MCPServeCmd runs the MCP tool server without the HTTP API.
type MCPServeCmd struct {
	Addr  string `short:"a" long:"addr" description:"listen address, overrides mcp.server_addr"`
	Stdio bool   `long:"stdio" description:"serve over stdin/stdout instead of HTTP"`
}

// Execute implements flags.Commander.
func (c *MCPServeCmd) Execute(_ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	if c.Stdio {
		// stdout carries the protocol.
		log.InitWriter(os.Stderr, s.LogLevel, s.LogFormat)
	}
	addr := s.MCP.ServerAddr
	if c.Addr != "" {
		addr = c.Addr
	}

	avatars, err := avatar.NewStore(s.AvatarStorePath())
	if err != nil {
		return err
	}
	anim := newAnimation(s, nil)
	defer anim.Close()

	srv := mcp.NewServer(avatars, anim)
	if c.Stdio {
		return srv.ServeStdio(ctx)
	}
	return srv.Serve(ctx, addr)
}

// PresetsCmd prints the avatar catalogue.
type PresetsCmd struct {
	Query string `short:"q" long:"query" description:"only avatars matching this text"`
}

// Execute implements flags.Commander.
func (c *PresetsCmd) Execute(_ []string) error {
	s, err := loadSettings(context.Background())
	if err != nil {
		return err
	}
	store, err := avatar.NewStore(s.AvatarStorePath())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPERSONALITY\tCUSTOM")
	for _, a := range store.Search(c.Query) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", a.ID, a.Name, a.Personality, a.Custom)
	}
	return w.Flush()
}

// BlendshapesCmd prints the supported blendshapes by category.
type BlendshapesCmd struct{}

// Execute implements flags.Commander.
func (c *BlendshapesCmd) Execute(_ []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY")
	for _, name := range animation.ARKitBlendshapes() {
		fmt.Fprintf(w, "%s\t%s\n", name, animation.Category(name))
	}
	return w.Flush()
}

// AnalyzeCmd classifies a WAV file by loudness.
type AnalyzeCmd struct {
	Input string `short:"i" long:"input" required:"true" description:"WAV file to analyse"`
}

// Execute implements flags.Commander.
func (c *AnalyzeCmd) Execute(_ []string) error {
	f, err := os.Open(c.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	pcm, err := audio.DecodeWAV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Input, err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(audio.Analyze(pcm))
}
