// Package libutil collects small file and formatting helpers: property
// lists, YAML documents, timestamps and terminal prompts.
package libutil

import (
	"fmt"
	"os"

	"howett.net/plist"
)

// ReadPlist decodes the XML or binary property list at path into out.
func ReadPlist(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read plist %s: %w", path, err)
	}
	if _, err := plist.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode plist %s: %w", path, err)
	}
	return nil
}

// WritePlist encodes v as an XML property list at path.
func WritePlist(path string, v any) error {
	data, err := plist.MarshalIndent(v, plist.XMLFormat, "\t")
	if err != nil {
		return fmt.Errorf("encode plist: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write plist %s: %w", path, err)
	}
	return nil
}
