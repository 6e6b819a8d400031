package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// settingsFileName is the settings file inside the config dir.
const settingsFileName = "config.json"

// Settings is the persisted appliance configuration. The engine treats a
// loaded Settings value as an immutable snapshot per operation: later edits
// never affect an in-flight job.
type Settings struct {
	ShareAddr        string   `json:"share_addr"`        // tunneled address
	ShareAddrLocal   string   `json:"share_addr_local"`  // local-network address
	ShareName        string   `json:"share_name"`
	Subfolder        string   `json:"subfolder"`
	ShareUsername    string   `json:"share_username"`
	SharePassword    string   `json:"share_password"`
	ShareVersion     string   `json:"share_version"` // SMB protocol version
	VerifyChecksums  bool     `json:"verify_checksums"`
	UseTunnel        bool     `json:"use_tunnel"`
	WebhookURL       string   `json:"webhook_url"`
	NotifyMilestones []int    `json:"notify_milestones"`
	ExcludePatterns  []string `json:"exclude_patterns"`
}

// DefaultSettings returns the factory configuration.
func DefaultSettings() Settings {
	return Settings{
		ShareAddr:        "100.109.23.38",
		ShareAddrLocal:   "192.168.88.20",
		ShareName:        "archive",
		ShareVersion:     "3.0",
		UseTunnel:        true,
		NotifyMilestones: []int{25, 50, 75, 100},
		ExcludePatterns:  []string{},
	}
}

// EffectiveAddr returns the share address selected by the UseTunnel flag,
// falling back to the tunneled address when no local address is configured.
func (s Settings) EffectiveAddr() string {
	if !s.UseTunnel && s.ShareAddrLocal != "" {
		return s.ShareAddrLocal
	}

	return s.ShareAddr
}

// DestinationString is the user-facing destination, e.g. "//host/share/sub".
func (s Settings) DestinationString() string {
	dest := "//" + s.EffectiveAddr() + "/" + s.ShareName
	if s.Subfolder != "" {
		dest += "/" + s.Subfolder
	}

	return dest
}

// Sanitized returns a copy safe to hand to observers: the password is blanked.
func (s Settings) Sanitized() Settings {
	s.SharePassword = ""

	return s
}

// HasPassword reports whether credentials are configured.
func (s Settings) HasPassword() bool {
	return s.SharePassword != ""
}

// SettingsStore loads and saves the settings record. A missing file means
// "use defaults"; load and save failures are reported but must never be
// treated as fatal by callers.
type SettingsStore struct {
	mu   sync.Mutex
	path string
}

// NewSettingsStore creates a store rooted at the given config directory.
func NewSettingsStore(configDir string) *SettingsStore {
	return &SettingsStore{path: filepath.Join(configDir, settingsFileName)}
}

// Load reads the settings file, filling any missing fields from defaults.
// Any read or parse failure yields the defaults.
func (st *SettingsStore) Load() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()

	defaults := DefaultSettings()

	data, err := os.ReadFile(st.path)
	if err != nil {
		return defaults
	}

	loaded := defaults
	if err := json.Unmarshal(data, &loaded); err != nil {
		return defaults
	}

	if loaded.NotifyMilestones == nil {
		loaded.NotifyMilestones = defaults.NotifyMilestones
	}

	if loaded.ExcludePatterns == nil {
		loaded.ExcludePatterns = defaults.ExcludePatterns
	}

	return loaded
}

// Save writes the settings file, creating the config dir if needed.
func (st *SettingsStore) Save(settings Settings) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(st.path), 0o750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(st.path, data, 0o600)
}

// Exists reports whether a settings file has been written.
func (st *SettingsStore) Exists() bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	_, err := os.Stat(st.path)

	return err == nil
}
