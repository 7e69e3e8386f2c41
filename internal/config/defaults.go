package config

const (
	defaultStateDir         = "~/.local/share/carillon"
	defaultLogDir           = "~/.local/share/carillon/logs"
	defaultExportDir        = "~/carillon"
	defaultAudioBackend     = BackendOto
	defaultSampleRate       = 48 * 1024
	defaultMeasureSeconds   = 2.0
	defaultVolume           = 127
	defaultNoteGapSamples   = 50
	defaultBufferMillis     = 100
	defaultMIDIVelocity     = 100
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Audio backends.
const (
	BackendOto  = "oto"
	BackendWAV  = "wav"
	BackendNull = "null"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		Audio: Audio{
			Backend:        defaultAudioBackend,
			SampleRate:     defaultSampleRate,
			MeasureSeconds: defaultMeasureSeconds,
			Volume:         defaultVolume,
			NoteGapSamples: defaultNoteGapSamples,
			BufferMillis:   defaultBufferMillis,
		},
		MIDI: MIDI{
			Velocity: defaultMIDIVelocity,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		History: History{
			Enabled: true,
		},
		Device: Device{
			Monitor: true,
		},
	}
}
