package compiler

import "errors"

var (
	ErrUnknownBundle          = errors.New("unknown bundle")
	ErrBundleNotLoaded        = errors.New("bundle not loaded")
	ErrEnvPresetNotLoaded     = errors.New("env preset not loaded")
	ErrEnvPresetNotRegistered = errors.New("env preset not registered")
)
