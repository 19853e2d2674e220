// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vectorflow",
		Usage: "Keep vector indexes in sync with relational tables",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ensure-index",
				Usage:  "Create a vector index if it does not exist",
				Action: ensureIndexCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:     "index",
						Usage:    "Index name",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "dimensions",
						Usage:    "Vector dimensionality",
						Required: true,
					},
				),
			},
			{
				Name:   "stream",
				Usage:  "Embed change events and produce embedding records to index topics",
				Action: streamCommand,
				Flags: concatFlags(kafkaFlags(), embeddingFlags(), mappingFlags(),
					[]cli.Flag{
						&cli.StringSliceFlag{
							Name:     "route",
							Usage:    "Source topic and destination index as topic=index (repeatable)",
							Required: true,
						},
						&cli.StringFlag{
							Name:     "key-column",
							Usage:    "Primary key column whose value keys produced records",
							Required: true,
						},
						&cli.BoolFlag{
							Name:  "create-topics",
							Usage: "Create destination topics before starting",
						},
						&cli.IntFlag{
							Name:  "partitions",
							Usage: "Partitions of created topics",
							Value: 3,
						},
						&cli.IntFlag{
							Name:  "pool-size",
							Usage: "Worker pool size (grows to one worker per route)",
						},
					}),
			},
			{
				Name:   "sink",
				Usage:  "Load embedding records from an index topic into the vector store",
				Action: sinkCommand,
				Flags: concatFlags(kafkaFlags(), storeFlags(),
					[]cli.Flag{
						&cli.StringFlag{
							Name:     "index",
							Usage:    "Destination index; also the topic read",
							Required: true,
						},
						&cli.StringFlag{
							Name:  "namespace",
							Usage: "Index namespace",
						},
						&cli.IntFlag{
							Name:  "batch-size",
							Usage: "Records per upsert",
							Value: 1000,
						},
						&cli.DurationFlag{
							Name:  "flush-interval",
							Usage: "Longest a partial batch waits",
							Value: 2 * time.Second,
						},
						&cli.BoolFlag{
							Name:  "ensure-index",
							Usage: "Create the index from the first record's dimensionality",
						},
					}),
			},
			{
				Name:   "register-connector",
				Usage:  "Register a Debezium Postgres connector with Kafka Connect",
				Action: registerConnectorCommand,
				Flags: concatFlags(postgresFlags(),
					[]cli.Flag{
						&cli.StringFlag{
							Name:  "connect-url",
							Usage: "Kafka Connect REST URL",
							Value: "http://localhost:8083",
						},
						&cli.StringFlag{
							Name:     "relation",
							Usage:    "Table to capture",
							Required: true,
						},
						&cli.StringFlag{
							Name:  "schema",
							Usage: "Schema of the table",
							Value: "public",
						},
						&cli.StringFlag{
							Name:     "primary-key",
							Usage:    "Primary key column",
							Required: true,
						},
						&cli.StringSliceFlag{
							Name:  "columns",
							Usage: "Captured columns (all when omitted)",
						},
						&cli.DurationFlag{
							Name:  "wait",
							Usage: "Wait this long for the connector to appear (0 skips the check)",
							Value: 15 * time.Second,
						},
						&cli.BoolFlag{
							Name:  "if-not-exists",
							Usage: "Succeed when a connector with the same name already exists",
						},
					}),
			},
			{
				Name:   "backfill",
				Usage:  "Embed the existing rows of a table into an index",
				Action: backfillCommand,
				Flags: concatFlags(storeFlags(), embeddingFlags(), mappingFlags(),
					[]cli.Flag{
						&cli.StringFlag{
							Name:  "driver",
							Usage: "database/sql driver (pgx, sqlite)",
							Value: "pgx",
						},
						&cli.StringFlag{
							Name:     "dsn",
							Usage:    "Database connection string",
							EnvVars:  []string{"DATABASE_URL"},
							Required: true,
						},
						&cli.StringFlag{
							Name:     "relation",
							Usage:    "Table to read",
							Required: true,
						},
						&cli.StringFlag{
							Name:     "primary-key",
							Usage:    "Primary key column; becomes the vector id",
							Required: true,
						},
						&cli.StringFlag{
							Name:     "index",
							Usage:    "Destination index",
							Required: true,
						},
						&cli.StringFlag{
							Name:  "namespace",
							Usage: "Index namespace",
						},
						&cli.IntFlag{
							Name:  "chunk-size",
							Usage: "Rows embedded and upserted together",
							Value: 100,
						},
						&cli.Int64Flag{
							Name:  "report-interval",
							Usage: "Report progress every N rows",
							Value: 100,
						},
						&cli.IntFlag{
							Name:  "max-retries",
							Usage: "Maximum embedding attempts per chunk",
							Value: 3,
						},
						&cli.DurationFlag{
							Name:  "retry-delay",
							Usage: "Base delay for exponential backoff",
							Value: 1 * time.Second,
						},
					}),
			},
			{
				Name:   "inspect",
				Usage:  "List the indexes of a local store",
				Action: inspectCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "state",
						Aliases:  []string{"d"},
						Usage:    "Path to the local BadgerDB directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "namespace",
						Usage: "Namespace to count",
					},
				},
			},
		},
	}
}

func concatFlags(sets ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, set := range sets {
		flags = append(flags, set...)
	}
	return flags
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
