package tts

import "errors"

var (
	// ErrAssetNotFound indicates a required model or voices file is missing
	// on disk. The provider stays unusable until the assets are supplied.
	ErrAssetNotFound = errors.New("required asset file not found")
	// ErrNoVoicesAvailable indicates the engine reported an empty voice list.
	ErrNoVoicesAvailable = errors.New("no voices available")
	// ErrUnsupportedFormat indicates the requested encoding is not produced
	// by the chosen provider. Recoverable by requesting wav.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrProviderNotFound indicates an unknown provider name with no
	// applicable fallback.
	ErrProviderNotFound = errors.New("provider not found")
	// ErrEngineInitFailure indicates the synthesis engine could not be
	// constructed for a reason other than missing assets.
	ErrEngineInitFailure = errors.New("engine initialization failed")
)
