package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/indexit/core"
)

func TestParseStage(t *testing.T) {
	t.Run("known stages", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected core.Stage
		}{
			{"chunking", core.StageChunking},
			{"embedding", core.StageEmbedding},
			{"ner", core.StageNER},
			{"Embedding", core.StageEmbedding},
			{"NER", core.StageNER},
		}
		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				stage, err := parseStage(tc.input)
				require.NoError(t, err)
				assert.Equal(t, tc.expected, stage)
			})
		}
	})

	t.Run("unknown stage returns error", func(t *testing.T) {
		_, err := parseStage("sharding")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sharding")
	})
}

func TestCommandFlagValidation(t *testing.T) {
	app := &cli.App{
		Name: "indexit",
		Commands: []*cli.Command{
			{
				Name:   "reembed",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:     "document-id",
						Required: true,
					},
				},
			},
		},
	}

	t.Run("missing db flag fails", func(t *testing.T) {
		err := app.Run([]string{"indexit", "reembed", "--embedding-model", "test-model", "--document-id", "1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db")
	})

	t.Run("missing embedding-model flag fails", func(t *testing.T) {
		err := app.Run([]string{"indexit", "reembed", "--db", "/tmp/test", "--document-id", "1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding-model")
	})
}

func TestSetupLogger(t *testing.T) {
	newApp := func() *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}
	}

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				require.NoError(t, newApp().Run([]string{"test", "--log-level", level}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newApp().Run([]string{"test", "--log-level", "loud"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
