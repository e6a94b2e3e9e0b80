package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/erraggy/rrest"
	"github.com/erraggy/rrest/cmd/rrest/commands"
	"github.com/erraggy/rrest/config"
)

const (
	specFlag   = "spec"
	formatFlag = "format"
	methodFlag = "method"
	pathFlag   = "path"
	headerFlag = "header"
	bodyFlag   = "body"
	schemeFlag = "scheme"
	addrFlag   = "addr"
	envFlag    = "env"
	corsFlag   = "cors"
)

var formatOption = &cli.StringFlag{
	Name:    formatFlag,
	Aliases: []string{"f"},
	Value:   commands.FormatText,
	Usage:   "Output format: text, json or yaml",
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "rrest"
	app.Version = rrest.Version()
	app.Usage = "Validate HTTP requests and responses against RAML, OpenAPI 3 and Swagger 2.0 contracts."
	app.Commands = []*cli.Command{
		{
			Name:  "routes",
			Usage: "List the routes of an API document",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: specFlag, Aliases: []string{"s"}, Required: true, Usage: "API document file or URL"},
				formatOption,
			},
			Action: func(c *cli.Context) error {
				return commands.HandleRoutes(c.Context, c.App.Writer, c.String(specFlag), c.String(formatFlag))
			},
		},
		{
			Name:  "validate",
			Usage: "Run a request through the validation pipeline",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: specFlag, Aliases: []string{"s"}, Required: true, Usage: "API document file or URL"},
				&cli.StringFlag{Name: methodFlag, Aliases: []string{"X"}, Value: "GET", Usage: "HTTP method"},
				&cli.StringFlag{Name: pathFlag, Aliases: []string{"p"}, Required: true, Usage: "Request path with query string"},
				&cli.StringSliceFlag{Name: headerFlag, Aliases: []string{"H"}, Usage: "Request header 'Name: value', repeatable"},
				&cli.StringFlag{Name: bodyFlag, Aliases: []string{"d"}, Usage: "File holding the request body"},
				&cli.StringFlag{Name: schemeFlag, Value: "http", Usage: "Transport protocol: http or https"},
				&cli.StringFlag{Name: envFlag, Value: ".env", Usage: "Optional .env file with RREST_* settings"},
				formatOption,
			},
			Action: func(c *cli.Context) error {
				cfg, err := config.Load(c.String(envFlag))
				if err != nil {
					return err
				}
				return commands.HandleValidate(c.Context, c.App.Writer, commands.ValidateRequest{
					Source:   c.String(specFlag),
					Method:   c.String(methodFlag),
					Path:     c.String(pathFlag),
					Headers:  c.StringSlice(headerFlag),
					BodyFile: c.String(bodyFlag),
					Scheme:   c.String(schemeFlag),
					Format:   c.String(formatFlag),
					Options:  cfg.Options(commands.NewLogger(cfg.LogLevel)),
				})
			},
		},
		{
			Name:  "serve",
			Usage: "Serve a mock API that validates requests and echoes them",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{Name: specFlag, Aliases: []string{"s"}, Required: true, Usage: "API document file or URL, repeatable"},
				&cli.StringFlag{Name: addrFlag, Value: ":8080", Usage: "Listen address"},
				&cli.StringFlag{Name: envFlag, Value: ".env", Usage: "Optional .env file with RREST_* settings"},
				&cli.BoolFlag{Name: corsFlag, Usage: "Answer CORS pre-flight requests"},
			},
			Action: func(c *cli.Context) error {
				return commands.HandleServe(c.Context, commands.ServeOptions{
					Sources: c.StringSlice(specFlag),
					Addr:    c.String(addrFlag),
					EnvFile: c.String(envFlag),
					CORS:    c.Bool(corsFlag),
				})
			},
		},
		{
			Name:  "version",
			Usage: "Print build details",
			Action: func(c *cli.Context) error {
				_, err := fmt.Fprintln(c.App.Writer, rrest.BuildInfo())
				return err
			},
		},
	}
	return app
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		logger := commands.NewLogger(zerolog.InfoLevel)
		logger.Error().Err(err).Msg("rrest failed")
		stop()
		os.Exit(1)
	}
}
