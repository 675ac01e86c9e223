package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/renubu/renubu/internal/app"
	"github.com/renubu/renubu/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Founder OS MCP server",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, closeDB, err := app.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			return mcp.ServeStdio(ctx, mcp.NewServer(a, Version))
		},
	})

	var argsJSON string
	call := &cobra.Command{
		Use:   "call <tool>",
		Short: "Call one tool through an in-memory client and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, closeDB, err := app.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			res, err := mcp.Call(cmd.Context(), mcp.NewServer(a, Version), args[0], []byte(argsJSON))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mcp.ResultText(res))
			if res.IsError {
				return errors.New("tool returned an error")
			}
			return nil
		},
	}
	call.Flags().StringVar(&argsJSON, "args", "{}", "tool arguments as a JSON object")
	cmd.AddCommand(call)

	return cmd
}
