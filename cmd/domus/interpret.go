package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nadzzz/domus/internal/config"
	"github.com/nadzzz/domus/internal/device"
	"github.com/nadzzz/domus/internal/dispatch"
	"github.com/nadzzz/domus/internal/executor"
	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/nlp/normalize"
	"github.com/nadzzz/domus/internal/pipeline"
	grpctransport "github.com/nadzzz/domus/internal/transport/grpc"
)

var (
	interpretExplain bool
	interpretExecute bool
	interpretDevices string
	interpretServer  string
)

var interpretCmd = &cobra.Command{
	Use:   "interpret TEXT...",
	Short: "Interpret one command and print the result as JSON",
	Example: `  domus interpret enciende la luz del comedor
  domus interpret --explain "no abras el porton"
  domus interpret --devices data/devices.json "apaga el aire"
  domus interpret --server localhost:50051 "cierra la persiana"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInterpret,
}

func init() {
	interpretCmd.Flags().BoolVar(&interpretExplain, "explain", false, "print the rule path trace instead of the interpretation")
	interpretCmd.Flags().BoolVar(&interpretExecute, "execute", false, "also run the interpretation against the IoT backend")
	interpretCmd.Flags().StringVar(&interpretDevices, "devices", "", "devices file, overrides the configured source")
	interpretCmd.Flags().StringVar(&interpretServer, "server", "", "gRPC address of a running daemon; interpret remotely")
	interpretCmd.MarkFlagsMutuallyExclusive("explain", "execute")
	interpretCmd.MarkFlagsMutuallyExclusive("devices", "server")
}

func runInterpret(cmd *cobra.Command, args []string) error {
	quietLogging(cmd.ErrOrStderr())
	ctx := cmd.Context()
	req := message.CommandRequest{Text: strings.Join(args, " ")}

	if interpretServer != "" {
		return interpretRemote(ctx, cmd.OutOrStdout(), req)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	var source device.Source
	if interpretDevices != "" {
		source = device.NewFileSource(interpretDevices)
	} else {
		src, closeSource, err := openSource(ctx, cfg.Devices)
		if err != nil {
			return fmt.Errorf("opening device source: %w", err)
		}
		defer closeSource()
		source = src
	}

	norm := normalize.New(cfg.NLP.Options())
	fb := newFallback(cfg.Fallback, norm)
	monitor := newMonitor(fb, cfg.Fallback)

	p := pipeline.New(pipelineOptions(pipeline.Options{
		Normalizer: norm,
		Source:     source,
		Executor:   executor.New(cfg.Executor),
	}, fb, monitor, cfg.Fallback))
	if _, err := p.ReloadFromSource(ctx); err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	d := dispatch.New(p, monitor, version)
	var resp any
	switch {
	case interpretExplain:
		resp, err = d.Explain(ctx, req)
	case interpretExecute:
		monitor.Check(ctx)
		resp, err = d.Execute(ctx, req)
	default:
		monitor.Check(ctx)
		resp, err = d.Interpret(ctx, req)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func interpretRemote(ctx context.Context, w io.Writer, req message.CommandRequest) error {
	conn, err := grpc.NewClient(interpretServer, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", interpretServer, err)
	}
	defer conn.Close()

	client := grpctransport.NewClient(conn)
	var resp any
	switch {
	case interpretExplain:
		resp, err = client.Explain(ctx, req.Text)
	case interpretExecute:
		resp, err = client.Execute(ctx, req.Text)
	default:
		resp, err = client.Interpret(ctx, req.Text)
	}
	if err != nil {
		return err
	}
	return printJSON(w, resp)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
