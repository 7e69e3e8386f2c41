// Package config loads, normalizes, and validates carillon configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the CARILLON_AUDIO_BACKEND
// environment override. The sample rate and measure length defined here are
// shared by the waveform table, the bells and every audio sink, so always
// obtain them through this package.
package config
