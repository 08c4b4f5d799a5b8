// Command solver plays a Spell Ground session through the REST API until the
// puzzle is won. It reads the current word from the puzzle state, lays the
// matching tiles out left to right and merges them. A number of deliberate
// wrong answers per question can be requested to exercise the health rules.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/spellground/game/engine"
	"github.com/wricardo/spellground/game/service"
)

// slotPadding separates neighbouring tiles of a planned row
const slotPadding = 10.0

var errGaveUp = errors.New("attempt limit reached before the puzzle was won")

// Client talks to the REST API on behalf of one session
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: %s - %s", method, path, resp.Status, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("parse %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

func (c *Client) CreateSession(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &info); err != nil {
		return nil, err
	}
	c.sessionID = info.ID
	return &info, nil
}

func (c *Client) GetState(ctx context.Context) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/state"), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) Move(ctx context.Context, tileID int, x, y float64) error {
	body := map[string]any{"tile_id": tileID, "x": x, "y": y}
	return c.do(ctx, http.MethodPost, c.sessionPath("/move"), body, nil)
}

func (c *Client) Merge(ctx context.Context) (*service.ActionResult, error) {
	var result service.ActionResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/merge"), map[string]bool{"settle": true}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Result(ctx context.Context) (*engine.Result, error) {
	var result engine.Result
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/result"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// playOptions tune a run
type playOptions struct {
	Mistakes    int // wrong answers submitted per question before the right one
	MaxAttempts int
	Delay       time.Duration
	Seed        int64
}

// play submits answers until the session is won
func play(ctx context.Context, c *Client, opts playOptions, logger zerolog.Logger) (*engine.Result, error) {
	rng := rand.New(rand.NewSource(opts.Seed))
	wrong := 0
	question := -1

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		snap, err := c.GetState(ctx)
		if err != nil {
			return nil, err
		}
		if snap.State == engine.StateWin {
			return c.Result(ctx)
		}
		if snap.QuestionIndex != question {
			question = snap.QuestionIndex
			wrong = 0
		}

		plan, err := planAnswer(snap.Word, snap.Tiles)
		if err != nil {
			return nil, fmt.Errorf("question %d %q: %w", snap.QuestionIndex+1, snap.Word, err)
		}
		if wrong < opts.Mistakes {
			plan = scramble(plan, rng)
			wrong++
		}

		var widest float64
		for _, t := range snap.Tiles {
			widest = max(widest, t.Width)
		}
		for i, x := range rowPositions(len(plan), widest+slotPadding) {
			if err := c.Move(ctx, plan[i], x, 0); err != nil {
				return nil, err
			}
		}

		result, err := c.Merge(ctx)
		if err != nil {
			return nil, err
		}

		event := logger.Info().
			Int("attempt", attempt).
			Int("question", snap.QuestionIndex+1).
			Str("word", snap.Word)
		if ev := result.Evaluation; ev != nil {
			event = event.Str("submitted", ev.Submitted).Bool("perfect", ev.Perfect)
		}
		if result.Snapshot != nil {
			event = event.Int("health", result.Snapshot.Health)
		}
		event.Msg("answer submitted")

		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}

	// the last merge may have won the puzzle
	if snap, err := c.GetState(ctx); err == nil && snap.State == engine.StateWin {
		return c.Result(ctx)
	}
	return nil, errGaveUp
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := zerolog.InfoLevel
	if cmd.Bool("v") {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	client := NewClient(cmd.String("url"))
	logger.Info().Str("url", client.baseURL).Msg("Connecting to game server")

	if id := cmd.String("continue"); id != "" {
		client.sessionID = id
		logger.Info().Str("session", id).Msg("Resuming session")
	} else {
		info, err := client.CreateSession(ctx, service.CreateSessionRequest{
			SetName:   cmd.String("set"),
			Questions: cmd.StringSlice("question"),
			Split:     engine.SplitMode(cmd.String("split")),
			Player:    engine.Player{Name: cmd.String("player")},
		})
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		logger.Info().
			Str("session", info.ID).
			Str("set", info.SetName).
			Int("questions", info.Snapshot.QuestionCount).
			Int("health", info.Snapshot.Health).
			Msg("Session created")
	}

	result, err := play(ctx, client, playOptions{
		Mistakes:    int(cmd.Int("mistakes")),
		MaxAttempts: int(cmd.Int("max-attempts")),
		Delay:       cmd.Duration("delay"),
		Seed:        time.Now().UnixNano(),
	}, logger)
	if err != nil {
		logger.Error().Err(err).Str("session", client.sessionID).Msg("Failed to win")
		return err
	}

	logger.Info().
		Str("session", client.sessionID).
		Int("score", result.Score).
		Int("health", result.Health).
		Msg("Puzzle solved")
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "solver",
		Usage: "Play a Spell Ground session through the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL", Sources: cli.EnvVars("SPELLGROUND_URL")},
			&cli.StringFlag{Name: "set", Usage: "Question set name (default set when empty)"},
			&cli.StringSliceFlag{Name: "question", Usage: "Custom question, repeatable; overrides --set"},
			&cli.StringFlag{Name: "split", Usage: "Split mode for custom questions (char or word)"},
			&cli.StringFlag{Name: "player", Value: "solver", Usage: "Player name recorded in the result"},
			&cli.StringFlag{Name: "continue", Usage: "Resume playing an existing session by ID"},
			&cli.IntFlag{Name: "mistakes", Usage: "Wrong answers to submit per question before the right one"},
			&cli.IntFlag{Name: "max-attempts", Value: 500, Usage: "Maximum merges before giving up"},
			&cli.DurationFlag{Name: "delay", Usage: "Pause between merges"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}
