// Package config wires command-line flags, SKETCHMATCH_-prefixed
// environment variables, and defaults into one validated Config.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sketchmatch/sketchmatch-backend/internal/game"
	"github.com/sketchmatch/sketchmatch-backend/internal/room"
	"github.com/sketchmatch/sketchmatch-backend/internal/similarity"
)

type Config struct {
	Bind    string
	Port    int
	Verbose bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PromptSeconds   int
	ReplaySeconds   int
	StandingSeconds int
	MinPlayers      int
	EndGrace        time.Duration

	MinRoomSize    int
	MaxRoomSize    int
	MinRounds      int
	MaxRounds      int
	MinDrawingTime int
	MaxDrawingTime int

	WeightStrokeCount float64
	WeightStrokeMatch float64
	WeightShape       float64
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.PromptSeconds < 1 || c.ReplaySeconds < 1 || c.StandingSeconds < 1 {
		return fmt.Errorf("phase durations must be at least one second")
	}
	if c.MinPlayers < 1 {
		return fmt.Errorf("invalid min-players: %d", c.MinPlayers)
	}
	if c.MinRoomSize < 1 || c.MaxRoomSize < c.MinRoomSize {
		return fmt.Errorf("invalid room size bounds: %d-%d", c.MinRoomSize, c.MaxRoomSize)
	}
	if c.MinRounds < 1 || c.MaxRounds < c.MinRounds {
		return fmt.Errorf("invalid round bounds: %d-%d", c.MinRounds, c.MaxRounds)
	}
	if c.MinDrawingTime < 1 || c.MaxDrawingTime < c.MinDrawingTime {
		return fmt.Errorf("invalid drawing time bounds: %d-%d", c.MinDrawingTime, c.MaxDrawingTime)
	}
	if c.WeightStrokeCount < 0 || c.WeightStrokeMatch < 0 || c.WeightShape < 0 {
		return fmt.Errorf("similarity weights must be non-negative")
	}
	return nil
}

func (c *Config) Bounds() game.Bounds {
	return game.Bounds{
		MinPlayers:     c.MinRoomSize,
		MaxPlayers:     c.MaxRoomSize,
		MinRounds:      c.MinRounds,
		MaxRounds:      c.MaxRounds,
		MinDrawingTime: c.MinDrawingTime,
		MaxDrawingTime: c.MaxDrawingTime,
	}
}

func (c *Config) Timing() room.Timing {
	t := room.DefaultTiming()
	t.PromptSeconds = c.PromptSeconds
	t.ReplaySeconds = c.ReplaySeconds
	t.StandingSeconds = c.StandingSeconds
	t.MinPlayersToStart = c.MinPlayers
	t.EndGrace = c.EndGrace
	return t
}

func (c *Config) Weights() similarity.Weights {
	return similarity.Weights{
		StrokeCount: c.WeightStrokeCount,
		StrokeMatch: c.WeightStrokeMatch,
		Shape:       c.WeightShape,
	}
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// NewCmd builds the root command. Every flag can also be set through an
// SKETCHMATCH_ environment variable with the same name.
func NewCmd(cfg *Config, run func(cmd *cobra.Command, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SKETCHMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "sketchmatch-backend",
		Short:         "Multiplayer drawing-guess game backend.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	defaults := room.DefaultTiming()
	bounds := game.DefaultBounds()
	weights := similarity.DefaultWeights()

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: SKETCHMATCH_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: SKETCHMATCH_PORT)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log at debug level (env: SKETCHMATCH_VERBOSE)")

	fs.StringVar(&cfg.RedisAddr, "redis-addr", "localhost:6379", "redis address (env: SKETCHMATCH_REDIS_ADDR)")
	fs.StringVar(&cfg.RedisPassword, "redis-password", "", "redis password (env: SKETCHMATCH_REDIS_PASSWORD)")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "redis database number (env: SKETCHMATCH_REDIS_DB)")

	fs.IntVar(&cfg.PromptSeconds, "prompt-seconds", defaults.PromptSeconds, "length of the prompt reveal phase (env: SKETCHMATCH_PROMPT_SECONDS)")
	fs.IntVar(&cfg.ReplaySeconds, "replay-seconds", defaults.ReplaySeconds, "length of the round replay phase (env: SKETCHMATCH_REPLAY_SECONDS)")
	fs.IntVar(&cfg.StandingSeconds, "standing-seconds", defaults.StandingSeconds, "length of the round standing phase (env: SKETCHMATCH_STANDING_SECONDS)")
	fs.IntVar(&cfg.MinPlayers, "min-players", defaults.MinPlayersToStart, "players required before the host may start (env: SKETCHMATCH_MIN_PLAYERS)")
	fs.DurationVar(&cfg.EndGrace, "end-grace", defaults.EndGrace, "time finished rooms linger before expiry (env: SKETCHMATCH_END_GRACE)")

	fs.IntVar(&cfg.MinRoomSize, "min-room-size", bounds.MinPlayers, "smallest allowed room capacity (env: SKETCHMATCH_MIN_ROOM_SIZE)")
	fs.IntVar(&cfg.MaxRoomSize, "max-room-size", bounds.MaxPlayers, "largest allowed room capacity (env: SKETCHMATCH_MAX_ROOM_SIZE)")
	fs.IntVar(&cfg.MinRounds, "min-rounds", bounds.MinRounds, "fewest allowed rounds per game (env: SKETCHMATCH_MIN_ROUNDS)")
	fs.IntVar(&cfg.MaxRounds, "max-rounds", bounds.MaxRounds, "most allowed rounds per game (env: SKETCHMATCH_MAX_ROUNDS)")
	fs.IntVar(&cfg.MinDrawingTime, "min-drawing-time", bounds.MinDrawingTime, "shortest allowed drawing phase in seconds (env: SKETCHMATCH_MIN_DRAWING_TIME)")
	fs.IntVar(&cfg.MaxDrawingTime, "max-drawing-time", bounds.MaxDrawingTime, "longest allowed drawing phase in seconds (env: SKETCHMATCH_MAX_DRAWING_TIME)")

	fs.Float64Var(&cfg.WeightStrokeCount, "weight-stroke-count", weights.StrokeCount, "similarity weight of the stroke count term (env: SKETCHMATCH_WEIGHT_STROKE_COUNT)")
	fs.Float64Var(&cfg.WeightStrokeMatch, "weight-stroke-match", weights.StrokeMatch, "similarity weight of the stroke match term (env: SKETCHMATCH_WEIGHT_STROKE_MATCH)")
	fs.Float64Var(&cfg.WeightShape, "weight-shape", weights.Shape, "similarity weight of the shape term (env: SKETCHMATCH_WEIGHT_SHAPE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
