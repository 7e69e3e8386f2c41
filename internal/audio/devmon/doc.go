// Package devmon watches udev netlink events for sound devices so a
// performance can report an output device that disappears mid-score.
package devmon
