package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/berkana/internal"
	"github.com/starford/berkana/internal/parser"
	pkgconfig "github.com/starford/berkana/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// sourceFormat picks the input format from the flag, else the extension.
func sourceFormat(flag, name string) (parser.Format, error) {
	if flag != "" {
		return parser.ParseFormat(flag)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return parser.FormatHTML, nil
	}
	return parser.FormatMarkdown, nil
}

func convert(_ context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("convert: expected one FILE argument (use - for stdin)")
	}
	name := cmd.Args().First()

	to, err := parser.ParseFormat(cmd.String("to"))
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	from, err := sourceFormat(cmd.String("from"), name)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	var data []byte
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	out, _, err := parser.Convert(string(data), from, to)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, out)
	return err
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "berkana",
		Usage:  "Headless block editor for Markdown documents with live editing sessions over HTTP",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "convert",
				Usage:     "Convert a document between Markdown and HTML through the block model",
				ArgsUsage: "FILE",
				Action:    convert,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Target format: markdown or html",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "Source format; defaults to the file extension",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
