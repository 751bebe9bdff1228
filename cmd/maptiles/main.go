package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"github.com/lvnav/maptiles"
	"github.com/lvnav/maptiles/tile"
	"github.com/urfave/cli/v2"
)

const defaultDB = "tiles.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func main() {
	app := cli.NewApp()

	app.Name = "maptiles"
	app.Usage = "Map tile conversion and storage utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"MAPTILES_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to tile database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "convert",
			Usage:     "Convert a PNG tile pyramid into device tiles",
			ArgsUsage: "SOURCE DEST",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "jobs",
					Aliases: []string{"j"},
					Value:   4,
					Usage:   "number of parallel workers",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "rgb565",
					Usage:   "output color format (rgb565 or i8)",
				},
				&cli.BoolFlag{
					Name:  "force",
					Usage: "overwrite existing tiles",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				var format int
				switch c.String("format") {
				case "rgb565":
					format = tile.FormatRGB565
				case "i8":
					format = tile.FormatI8
				default:
					return cli.NewExitError(fmt.Sprintf("unknown format %q", c.String("format")), 1)
				}

				conv := maptiles.NewConverter(format, c.Bool("force"), newLogger(c))
				if err := conv.Convert(c.Args().Get(0), c.Args().Get(1), c.Int("jobs")); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "import",
			Usage:     "Import a converted tile tree into the database",
			ArgsUsage: "DIRECTORY",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				db, err := maptiles.NewTileDB(c.String("db"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer db.Close()

				n, err := db.ImportDirectory(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				fmt.Printf("Imported %d tiles\n", n)

				return nil
			},
		},
		{
			Name:      "info",
			Usage:     "Show the geometry of a converted tile file",
			ArgsUsage: "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				f, err := os.Open(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer f.Close()

				cfg, err := tile.DecodeConfig(f)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				fmt.Printf("%s: %dx%d\n", c.Args().First(), cfg.Width, cfg.Height)

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
