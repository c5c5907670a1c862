package agent

import "fmt"

const (
	DeviceUHID = "uhid"
	DeviceLog  = "log"
)

// Config locates the files the agent works with. The deck configuration
// itself lives in DeckConfig and is live-reloaded.
type Config struct {
	ConfigDir  string `json:"configDir"`
	DataDir    string `json:"dataDir"`
	DeckConfig string `json:"deckConfig"`
	// Device selects the key output: a virtual uhid keyboard or a log-only device.
	Device string `json:"device"`
	// Host is the listen address of the dispatch server. Empty means all interfaces.
	Host string `json:"host"`
	// WebDir serves the web client from disk instead of the embedded copy.
	WebDir string `json:"webDir,omitempty"`
}

func (c Config) Validate() error {
	switch c.Device {
	case DeviceUHID, DeviceLog:
	default:
		return fmt.Errorf("unknown device %q: expected %q or %q", c.Device, DeviceUHID, DeviceLog)
	}
	if c.DeckConfig == "" {
		return fmt.Errorf("deck config path is empty")
	}
	return nil
}
