package match

import "time"

// Config holds the limits of one match. It is built once and copied into
// every match, so changing a Config after New has no effect on running
// matches.
type Config struct {
	// InitialSize is the maze size of the first round; each later round adds one.
	InitialSize int `yaml:"initial_size" json:"initialSize" validate:"min=2,max=64"`
	// GenFactor is the generation ceiling per maze cell.
	GenFactor time.Duration `yaml:"gen_factor" json:"genFactor" validate:"gt=0"`
	// StartRoundLimit is the ceiling for the adventurers' startRound call.
	StartRoundLimit time.Duration `yaml:"start_round_limit" json:"startRoundLimit" validate:"gt=0"`
	// TurnGrant is added to each competitor's allowance every turn.
	TurnGrant time.Duration `yaml:"turn_grant" json:"turnGrant" validate:"gt=0"`
	// RoundGrant is each competitor's allowance at the start of a round.
	RoundGrant time.Duration `yaml:"round_grant" json:"roundGrant" validate:"gte=0"`
	// TurnsPerRound caps a round; reaching it ends the match.
	TurnsPerRound int `yaml:"turns_per_round" json:"turnsPerRound" validate:"min=1"`
	// MazeBonus is added to the score when an agent reaches the goal.
	MazeBonus int `yaml:"maze_bonus" json:"mazeBonus"`
	// InterruptSlack is how far past its limit a call may run before the
	// runtime is interrupted.
	InterruptSlack time.Duration `yaml:"interrupt_slack" json:"interruptSlack" validate:"gte=0"`
	// LoadLimit bounds the top-level body of a competitor program.
	LoadLimit time.Duration `yaml:"load_limit" json:"loadLimit" validate:"gt=0"`
}

// DefaultConfig returns the standard tournament limits.
func DefaultConfig() Config {
	return Config{
		InitialSize:     3,
		GenFactor:       time.Millisecond,
		StartRoundLimit: 10 * time.Millisecond,
		TurnGrant:       time.Millisecond,
		RoundGrant:      50 * time.Millisecond,
		TurnsPerRound:   1000,
		MazeBonus:       1000,
		InterruptSlack:  250 * time.Millisecond,
		LoadLimit:       time.Second,
	}
}
