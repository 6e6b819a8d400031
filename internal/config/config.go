// Package config handles command-line argument parsing and the persisted
// settings record for the transfer appliance.
package config

import (
	"time"

	"github.com/alexflint/go-arg"
)

// Exported constants.
const (
	// DefaultPort is the HTTP listen port for the observer gateway.
	DefaultPort = 8080
	// DefaultPollInterval is the device hot-plug poll interval.
	DefaultPollInterval = 2 * time.Second
	// DefaultConfigDir is where settings and history live.
	DefaultConfigDir = "/etc/offloader"
	// DefaultSourceMount is the fixed mount point for the removable volume.
	DefaultSourceMount = "/mnt/offloader/usb"
	// DefaultDestMount is the fixed mount point for the network share.
	DefaultDestMount = "/mnt/offloader/nas"
)

// Args holds the command-line configuration.
type Args struct {
	ConfigDir    string        `arg:"--config-dir" default:"/etc/offloader" help:"Directory for settings and history"`
	SourceMount  string        `arg:"--source-mount" default:"/mnt/offloader/usb" help:"Mount point for the removable source volume"`
	DestMount    string        `arg:"--dest-mount" default:"/mnt/offloader/nas" help:"Mount point for the network destination share"`
	Port         int           `arg:"-p,--port" default:"8080" help:"HTTP listen port"`
	PollInterval time.Duration `arg:"--poll-interval" default:"2s" help:"Device hot-plug poll interval"`
	Verbose      bool          `arg:"-v,--verbose" help:"Enable verbose logging"`
}

// Description returns the program description for go-arg.
func (Args) Description() string {
	return "Unattended removable-volume to network-share transfer appliance"
}

// Version returns the version string for go-arg.
func (Args) Version() string {
	return "offloader 2.0.0"
}

// ParseFlags parses command-line flags and returns the configuration.
func ParseFlags() *Args {
	args := &Args{
		ConfigDir:    DefaultConfigDir,
		SourceMount:  DefaultSourceMount,
		DestMount:    DefaultDestMount,
		Port:         DefaultPort,
		PollInterval: DefaultPollInterval,
	}

	arg.MustParse(args)

	return args
}
