package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-vhuman/internal/log"
	"github.com/teslashibe/go-vhuman/pkg/mcp"
	"github.com/teslashibe/go-vhuman/pkg/web"
)

const shutdownTimeout = 5 * time.Second

// ServeCmd runs the API server.
type ServeCmd struct {
	Host string `long:"host" description:"listen host, overrides server.host"`
	Port int    `short:"p" long:"port" description:"listen port, overrides server.port"`
	MCP  bool   `long:"mcp" description:"also run the MCP tool server on mcp.server_addr"`
}

// Execute implements flags.Commander.
func (c *ServeCmd) Execute(_ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	if c.Host != "" {
		s.Server.Host = c.Host
	}
	if c.Port != 0 {
		s.Server.Port = c.Port
	}
	logger := log.Component("main")

	svc, err := buildServices(ctx, s)
	if err != nil {
		return err
	}
	defer svc.LLM.Close()
	defer svc.Animation.Close()
	defer svc.Tools.Close()

	srv := web.NewServer(svc)

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Listen(s.Addr())
	}()

	if c.MCP {
		tools := mcp.NewServer(svc.Avatars, svc.Animation)
		go func() {
			if err := tools.Serve(ctx, s.MCP.ServerAddr); err != nil {
				errCh <- fmt.Errorf("mcp server: %w", err)
			}
		}()
	}

	logger.Info("virtual human started",
		"version", version,
		"addr", s.Addr(),
		"llm", svc.LLM.Mode(),
		"unity", !svc.Animation.DemoMode(),
	)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
	return nil
}
