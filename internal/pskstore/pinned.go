package pskstore

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
)

// MaxSSIDLen is the largest SSID the pinned-AP file (or any SSID-bearing
// attribute) may carry.
const MaxSSIDLen = 32

// LoadPinnedSSID reads the raw SSID bytes of the last connected network
// from path and unlinks the file immediately after a successful read, so
// the pin is consumed exactly once across a daemon restart.
func LoadPinnedSSID(path string) ([]byte, bool, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "pskstore: reading pinned AP file %s", path)
	}
	if len(data) > MaxSSIDLen {
		data = data[:MaxSSIDLen]
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, false, errors.Wrapf(err, "pskstore: unlinking pinned AP file %s", path)
	}
	return data, true, nil
}

// SavePinnedSSID writes the raw SSID bytes of the currently pinned network
// to path with no trailing newline. Callers only invoke this when the
// current AP's `fixed` flag is set.
func SavePinnedSSID(path string, ssid []byte) error {
	if len(ssid) > MaxSSIDLen {
		return errors.Errorf("pskstore: ssid length %d exceeds %d", len(ssid), MaxSSIDLen)
	}
	if err := ioutil.WriteFile(path, ssid, 0600); err != nil {
		return errors.Wrapf(err, "pskstore: writing pinned AP file %s", path)
	}
	return nil
}
