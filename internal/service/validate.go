package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mesh-intelligence/ssoconfig/internal/reconcile"
	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

const (
	maxApplicationNameLen = 260
	maxPropertyNameLen    = 100

	invalidNameChars     = "\\/:*?\"<>|"
	invalidPropertyChars = invalidNameChars + "\r\n\t"
)

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// ValidateApplicationName returns an error wrapping types.ErrInvalidName
// when name cannot be used as an application name.
func ValidateApplicationName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", types.ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > maxApplicationNameLen {
		return fmt.Errorf("%w: name must be between 1 and %d characters", types.ErrInvalidName, maxApplicationNameLen)
	}
	if strings.ContainsAny(name, invalidNameChars) {
		return fmt.Errorf("%w: %q contains invalid characters", types.ErrInvalidName, name)
	}
	if reservedNames[strings.ToUpper(name)] {
		return fmt.Errorf("%w: %q is a reserved system name", types.ErrInvalidName, name)
	}
	return nil
}

// ValidatePropertyName returns an error wrapping
// types.ErrInvalidPropertyName when key cannot be used as a property key.
func ValidatePropertyName(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: name cannot be empty", types.ErrInvalidPropertyName)
	}
	if utf8.RuneCountInString(key) > maxPropertyNameLen {
		return fmt.Errorf("%w: %q exceeds %d characters", types.ErrInvalidPropertyName, key, maxPropertyNameLen)
	}
	if strings.ContainsAny(key, invalidPropertyChars) {
		return fmt.Errorf("%w: %q contains invalid characters", types.ErrInvalidPropertyName, key)
	}
	if types.FoldKey(key) == types.FoldKey(reconcile.SentinelField) {
		return fmt.Errorf("%w: %q is reserved", types.ErrInvalidPropertyName, key)
	}
	return nil
}

// ValidateProperties checks every key of bag.
func ValidateProperties(bag *types.PropertyBag) error {
	for _, k := range bag.Keys() {
		if err := ValidatePropertyName(k); err != nil {
			return err
		}
	}
	return nil
}
