// Package soundsvc turns watcher events into audio feedback. Each cue maps
// to a WAV file and an enabled flag, fixed at startup; playback is
// fire-and-forget with overlap allowed.
package soundsvc

import "github.com/terriblefail/accesswatch/internal/config"

// Cue names an audio feedback clip. The set is closed; cue names double as
// the configuration keys.
type Cue string

const (
	CueLayerUp            Cue = "layer_up"
	CueLayerDown          Cue = "layer_down"
	CueCapsWordOn         Cue = "caps_word_on"
	CueCapsWordOff        Cue = "caps_word_off"
	CueProgramStart       Cue = "program_start"
	CueProgramExit        Cue = "program_exit"
	CueError              Cue = "error"
	CueKeyboardConnect    Cue = "keyboard_connect"
	CueKeyboardDisconnect Cue = "keyboard_disconnect"
)

// CueConfig is the per-cue sound table entry, immutable after load.
type CueConfig struct {
	Path    string
	Enabled bool
}

// CueTable builds the cue table from the loaded configuration.
func CueTable(cfg config.Config) map[Cue]CueConfig {
	return map[Cue]CueConfig{
		CueLayerUp:            {Path: cfg.Sounds.LayerUp, Enabled: cfg.Enabled.LayerUp},
		CueLayerDown:          {Path: cfg.Sounds.LayerDown, Enabled: cfg.Enabled.LayerDown},
		CueCapsWordOn:         {Path: cfg.Sounds.CapsWordOn, Enabled: cfg.Enabled.CapsWordOn},
		CueCapsWordOff:        {Path: cfg.Sounds.CapsWordOff, Enabled: cfg.Enabled.CapsWordOff},
		CueProgramStart:       {Path: cfg.Sounds.ProgramStart, Enabled: cfg.Enabled.ProgramStart},
		CueProgramExit:        {Path: cfg.Sounds.ProgramExit, Enabled: cfg.Enabled.ProgramExit},
		CueError:              {Path: cfg.Sounds.Error, Enabled: cfg.Enabled.Error},
		CueKeyboardConnect:    {Path: cfg.Sounds.KeyboardConnect, Enabled: cfg.Enabled.KeyboardConnect},
		CueKeyboardDisconnect: {Path: cfg.Sounds.KeyboardDisconnect, Enabled: cfg.Enabled.KeyboardDisconnect},
	}
}
