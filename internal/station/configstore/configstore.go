// Package configstore implements C4: the station's persisted configuration
// key/value store (OCPP 1.6 GetConfiguration/ChangeConfiguration, and the
// 2.0.1 component/variable model built on top of the same backing map).
package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Key is one configuration entry. Order within the store is insertion
// order, so GetConfiguration without a filter returns keys in a stable,
// reproducible sequence — grounded on the teacher's config.go layered-load
// approach of building a single ordered struct rather than an unordered map.
type Key struct {
	Name           string `json:"name"`
	Value          string `json:"value"`
	ReadOnly       bool   `json:"readOnly"`
	RebootRequired bool   `json:"rebootRequired"`
}

// Store is a mutex-guarded, ordered configuration key store with
// write-temp-then-rename persistence to a single JSON file per station.
type Store struct {
	mu       sync.Mutex
	path     string
	order    []string
	keys     map[string]*Key
	dirty    bool // set when a RebootRequired key changed since last boot
}

// New loads an existing store from path, or seeds it with defaults if the
// file does not yet exist.
func New(path string, defaults []Key) (*Store, error) {
	s := &Store{
		path: path,
		keys: make(map[string]*Key),
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		for _, d := range defaults {
			k := d
			s.order = append(s.order, k.Name)
			s.keys[k.Name] = &k
		}
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configstore: read %s: %w", path, err)
	}

	var loaded []Key
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("configstore: parse %s: %w", path, err)
	}
	for _, k := range loaded {
		kk := k
		s.order = append(s.order, kk.Name)
		s.keys[kk.Name] = &kk
	}
	return s, nil
}

// Get returns matching keys; an empty names slice returns all keys in
// insertion order, mirroring GetConfigurationRequest's "omitted = all".
func (s *Store) Get(names []string) (known []Key, unknown []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(names) == 0 {
		for _, n := range s.order {
			known = append(known, *s.keys[n])
		}
		return known, nil
	}

	for _, n := range names {
		if k, ok := s.keys[n]; ok {
			known = append(known, *k)
		} else {
			unknown = append(unknown, n)
		}
	}
	return known, unknown
}

// ChangeConfigurationStatus mirrors OCPP 1.6's Accepted/Rejected/
// RebootRequired/NotSupported vocabulary, reused verbatim for the 2.0.1
// SetVariables attribute-status mapping layer above this store.
type ChangeConfigurationStatus string

const (
	ChangeAccepted       ChangeConfigurationStatus = "Accepted"
	ChangeRejected       ChangeConfigurationStatus = "Rejected"
	ChangeRebootRequired ChangeConfigurationStatus = "RebootRequired"
	ChangeNotSupported   ChangeConfigurationStatus = "NotSupported"
)

// Set applies a ChangeConfiguration request and persists the store on
// success. Unknown keys get NotSupported rather than silently created,
// per spec §4.4.
func (s *Store) Set(name, value string) (ChangeConfigurationStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[name]
	if !ok {
		return ChangeNotSupported, nil
	}
	if k.ReadOnly {
		return ChangeRejected, nil
	}

	k.Value = value
	if err := s.persistLocked(); err != nil {
		return ChangeRejected, err
	}
	if k.RebootRequired {
		s.dirty = true
		return ChangeRebootRequired, nil
	}
	return ChangeAccepted, nil
}

// Value is a convenience accessor for internal callers (e.g. the ATG reading
// MeterValueSampleInterval) that need a single key's current value without
// the GetConfiguration round-trip shape.
func (s *Store) Value(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[name]
	if !ok {
		return "", false
	}
	return k.Value, true
}

// Names returns all key names, sorted, for diagnostics/UI listing.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.keys))
	for n := range s.keys {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Store) persistLocked() error {
	ordered := make([]Key, 0, len(s.order))
	for _, n := range s.order {
		ordered = append(ordered, *s.keys[n])
	}

	raw, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return fmt.Errorf("configstore: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".configstore-*.tmp")
	if err != nil {
		return fmt.Errorf("configstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("configstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("configstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("configstore: rename into place: %w", err)
	}
	return nil
}

// DefaultKeys returns the standard OCPP 1.6 configuration keys a fresh
// station seeds itself with, per spec §3's ConfigurationKey model.
func DefaultKeys() []Key {
	return []Key{
		{Name: "HeartbeatInterval", Value: "300", ReadOnly: false, RebootRequired: false},
		{Name: "MeterValueSampleInterval", Value: "60", ReadOnly: false, RebootRequired: false},
		{Name: "ConnectionTimeOut", Value: "30", ReadOnly: false, RebootRequired: false},
		{Name: "NumberOfConnectors", Value: "1", ReadOnly: true, RebootRequired: false},
		{Name: "SupportedFeatureProfiles", Value: "Core,FirmwareManagement,LocalAuthListManagement,SmartCharging,RemoteTrigger", ReadOnly: true, RebootRequired: false},
		{Name: "AuthorizeRemoteTxRequests", Value: "false", ReadOnly: false, RebootRequired: false},
		{Name: "LocalAuthorizeOffline", Value: "true", ReadOnly: false, RebootRequired: false},
		{Name: "LocalPreAuthorize", Value: "false", ReadOnly: false, RebootRequired: false},
		{Name: "LocalAuthListEnabled", Value: "true", ReadOnly: false, RebootRequired: false},
		{Name: "AuthorizationCacheEnabled", Value: "true", ReadOnly: false, RebootRequired: false},
		{Name: "GetConfigurationMaxKeys", Value: "50", ReadOnly: true, RebootRequired: false},
		{Name: "TransactionMessageAttempts", Value: "3", ReadOnly: false, RebootRequired: false},
		{Name: "TransactionMessageRetryInterval", Value: "60", ReadOnly: false, RebootRequired: false},
		{Name: "ClockAlignedDataInterval", Value: "0", ReadOnly: false, RebootRequired: false},
	}
}
